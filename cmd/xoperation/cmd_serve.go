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
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/xoperation"
)

type ServeCommand struct {
	Config string `short:"c" required:"" type:"existingfile" help:"Configuration file (YAML)."`
}

func (cmd *ServeCommand) Run(registry xoperation.Registry) error {
	instance, err := loadInstance(cmd.Config, registry)
	if err != nil {
		return err
	}

	if err := instance.Build(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		pfxlog.Logger().Infof("received %v, shutting down", sig)
		instance.Shutdown()
	}()

	return instance.Start()
}

func loadInstance(path string, registry xoperation.Registry) (*xoperation.InstanceImpl, error) {
	configMap, err := xoperation.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	instance := xoperation.NewDefaultInstance(registry, nil)
	if err := instance.LoadConfig(configMap); err != nil {
		return nil, fmt.Errorf("invalid configuration [%s]: %v", path, err)
	}

	return instance, nil
}
