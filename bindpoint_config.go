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

package xoperation

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	transporttls "github.com/openziti/transport/v2/tls"
	"github.com/pkg/errors"
)

// BindPointConfig is one address a Server listens on, together with the address clients use to reach it.
type BindPointConfig struct {
	InterfaceAddress string //<interface>:<port>
	Address          string //<ip/host>:<port>
	NewAddress       string //<ip/host>:<port> sent out as a header for clients to alternatively swap to (ip -> hostname moves)
}

// Parse the configuration map for a BindPointConfig. Values are checked by Validate.
func (bindPoint *BindPointConfig) Parse(values map[interface{}]interface{}) error {
	fields := []struct {
		key    string
		target *string
	}{
		{"interface", &bindPoint.InterfaceAddress},
		{"address", &bindPoint.Address},
		{"newAddress", &bindPoint.NewAddress},
	}

	for _, field := range fields {
		value, found, err := configString(values, field.key)
		if err != nil {
			return err
		}
		if found {
			*field.target = strings.TrimSpace(value)
		}
	}

	return nil
}

// Validate requires host:port values for the interface and advertised addresses and, if set, the new address.
func (bindPoint *BindPointConfig) Validate() error {
	if err := validateHostPort(bindPoint.InterfaceAddress); err != nil {
		return fmt.Errorf("invalid interface address [%s]: %v", bindPoint.InterfaceAddress, err)
	}

	if err := validateHostPort(bindPoint.Address); err != nil {
		return fmt.Errorf("invalid advertise address [%s]: %v", bindPoint.Address, err)
	}

	if bindPoint.NewAddress != "" {
		if err := validateHostPort(bindPoint.NewAddress); err != nil {
			return fmt.Errorf("invalid new address [%s]: %v", bindPoint.NewAddress, err)
		}
	}

	return nil
}

// AdvertisedUrl is the root URL clients use to reach the bind point.
func (bindPoint *BindPointConfig) AdvertisedUrl(scheme string) *url.URL {
	return &url.URL{Scheme: scheme, Host: bindPoint.Address, Path: "/"}
}

// NewAddressUrl is the value of the NewAddressHeader, or "" when the bind point is not moving.
func (bindPoint *BindPointConfig) NewAddressUrl(scheme string) string {
	if bindPoint.NewAddress == "" {
		return ""
	}
	return scheme + "://" + bindPoint.NewAddress
}

// Listener opens the listener the http.Server for this bind point serves on. A nil tlsConfig yields a plain TCP
// listener.
func (bindPoint *BindPointConfig) Listener(serverName string, tlsConfig *tls.Config) (net.Listener, error) {
	if tlsConfig == nil {
		return net.Listen("tcp", bindPoint.InterfaceAddress)
	}

	// make sure to listen to the expected protocols
	tlsConfig.NextProtos = append(tlsConfig.NextProtos, "h2", "http/1.1", "")
	return transporttls.ListenTLS(bindPoint.InterfaceAddress, serverName, tlsConfig)
}

func validateHostPort(address string) error {
	if address == "" {
		return errors.New("must not be an empty string or unspecified")
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrap(err, "could not split host and port")
	}

	if host == "" {
		return errors.New("host must be specified")
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return errors.Errorf("invalid port [%s], must be 1-65535", portStr)
	}

	return nil
}
