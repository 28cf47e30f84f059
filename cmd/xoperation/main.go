/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package main

import (
	"github.com/alecthomas/kong"
	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/xoperation"
	"github.com/sirupsen/logrus"
)

var CLI struct {
	Serve   ServeCommand  `cmd:"" help:"Serve the APIs declared in a configuration file."`
	Routes  RoutesCommand `cmd:"" help:"Print the operations each configured API routes to."`
	Verbose bool          `short:"v" help:"Enable debug logging."`
}

func main() {
	kongCtx := kong.Parse(
		&CLI,
		kong.BindTo(newRegistry(), (*xoperation.Registry)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description(`host operation pipelines over http

Loads a configuration file declaring servers, their bind points and the APIs they host. The greeter API is
registered with the binding "greeter".
		`),
	)

	options := pfxlog.DefaultOptions().SetTrimPrefix("github.com/openziti/")
	level := logrus.InfoLevel
	if CLI.Verbose {
		level = logrus.DebugLevel
	}
	pfxlog.GlobalInit(level, options)

	err := kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}
