package main

import "github.com/taskshare/taskshare/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustOpenStore()
	defer app.CloseStore()

	app.MustListenAndServeHTTP()
}
