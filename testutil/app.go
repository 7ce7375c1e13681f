package testutil

import (
	intercept "github.com/concordusapps/wsgi-intercept"
)

// SuccessBody is the body served by SuccessApp.
const SuccessBody = "WSGI intercept successful!\n"

// SuccessApp is an intercept.AppFactory serving a fixed 200 response;
// handy as a smoke-test application.
func SuccessApp() intercept.App {
	return func(env intercept.Environ, start intercept.StartResponse) (intercept.Body, error) {
		start("200 OK", []intercept.Header{{Name: "Content-Type", Value: "text/plain"}}, nil)
		return intercept.BodyChunks([]byte(SuccessBody)), nil
	}
}

// RecordingApp returns an intercept.AppFactory that serves status and body
// and appends every received environ to envs, for test assertions on the
// decoded request.
func RecordingApp(envs *[]intercept.Environ, status string, body []byte) intercept.AppFactory {
	return func() intercept.App {
		return func(env intercept.Environ, start intercept.StartResponse) (intercept.Body, error) {
			*envs = append(*envs, env)
			start(status, []intercept.Header{{Name: "Content-Type", Value: "text/plain"}}, nil)
			return intercept.BodyChunks(body), nil
		}
	}
}
