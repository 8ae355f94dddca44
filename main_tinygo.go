//go:build tinygo

package main

import (
	"rvcore/app"
	"rvcore/hal"
)

func main() {
	p := hal.New()
	cfg, err := app.ParseBootArgs("")
	if err == nil {
		err = app.Run(p, cfg)
	}
	if err != nil {
		p.Logger().WriteLineString("rvcore: " + err.Error())
	}
	p.CPU().Halt()
}
