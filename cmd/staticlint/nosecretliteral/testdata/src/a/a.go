package a

import "os"

const sessionSecret = "0123456789abcdef" // want "hardcoded secret in sessionSecret"

const cookieName = "storybooks.sid"

var secretFromEnv = os.Getenv("SESSION_SECRET")

var emptySecret = ""

type options struct {
	ClientID     string
	ClientSecret string
}

func build() options {
	opts := options{
		ClientID:     "client-id",
		ClientSecret: "hunter2", // want "hardcoded secret in ClientSecret"
	}
	opts.ClientSecret = "changeme" // want "hardcoded secret in ClientSecret"

	var flowSecret string
	flowSecret = `raw` // want "hardcoded secret in flowSecret"
	_ = flowSecret
	_ = secretFromEnv
	_ = emptySecret
	_ = cookieName
	_ = sessionSecret

	return opts
}
