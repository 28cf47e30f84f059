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
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/openziti/xoperation"
)

type RoutesCommand struct {
	Config string `short:"c" required:"" type:"existingfile" help:"Configuration file (YAML)."`

	out io.Writer
}

func (cmd *RoutesCommand) Run(registry xoperation.Registry) error {
	instance, err := loadInstance(cmd.Config, registry)
	if err != nil {
		return err
	}

	if err := instance.Build(); err != nil {
		return err
	}

	out := cmd.out
	if out == nil {
		out = os.Stdout
	}

	return printRoutes(out, instance.GetServers())
}

func printRoutes(out io.Writer, servers []*xoperation.Server) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "SERVER\tBINDING\tMETHOD\tURI\tOPERATION")

	for _, server := range servers {
		for _, handler := range server.Handlers {
			service, ok := handler.(*xoperation.Service)
			if !ok {
				continue
			}

			base := service.Selector().BaseAddress()
			for _, route := range service.Selector().Routes() {
				uri := route.UriTemplate
				if uri != xoperation.WildcardUriTemplate {
					uri = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(uri, "/")
				}
				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", server.ServerConfig.Name, service.Binding(), route.Method, uri, route.Operation)
			}
		}
	}

	return writer.Flush()
}
