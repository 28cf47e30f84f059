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
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LoadConfigFile reads a YAML configuration file into the map form every Parse function in this package expects.
func LoadConfigFile(path string) (map[interface{}]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file [%s]", path)
	}

	return ParseConfig(data)
}

// ParseConfig unmarshals YAML configuration data.
func ParseConfig(data []byte) (map[interface{}]interface{}, error) {
	configMap := map[interface{}]interface{}{}
	if err := yaml.Unmarshal(data, &configMap); err != nil {
		return nil, errors.Wrap(err, "unable to parse config")
	}

	return configMap, nil
}

// configValue looks up key and asserts its type. found is false when the key is absent; a present value of the
// wrong type is an error.
func configValue[T any](config map[interface{}]interface{}, key string, kind string) (value T, found bool, err error) {
	raw, found := config[key]
	if !found {
		return value, false, nil
	}

	value, ok := raw.(T)
	if !ok {
		return value, true, fmt.Errorf("could not use value for %s, not a %s", key, kind)
	}

	return value, true, nil
}

func configString(config map[interface{}]interface{}, key string) (string, bool, error) {
	return configValue[string](config, key, "string")
}

func configBool(config map[interface{}]interface{}, key string) (bool, bool, error) {
	return configValue[bool](config, key, "bool")
}

func configInt(config map[interface{}]interface{}, key string) (int, bool, error) {
	return configValue[int](config, key, "int")
}

func configSection(config map[interface{}]interface{}, key string) (map[interface{}]interface{}, bool, error) {
	return configValue[map[interface{}]interface{}](config, key, "map")
}

func configList(config map[interface{}]interface{}, key string) ([]interface{}, bool, error) {
	return configValue[[]interface{}](config, key, "list")
}

// configDuration parses a duration string such as "5s", leaving current in place when key is absent.
func configDuration(config map[interface{}]interface{}, key string, current time.Duration) (time.Duration, error) {
	durationStr, found, err := configString(config, key)
	if err != nil || !found {
		return current, err
	}

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return current, fmt.Errorf("could not parse %s %s as a duration (e.g. 1m): %v", key, durationStr, err)
	}

	return duration, nil
}

// configMaps returns the list under key as maps, failing on the first element that is not a map.
func configMaps(config map[interface{}]interface{}, key string) ([]map[interface{}]interface{}, bool, error) {
	list, found, err := configList(config, key)
	if err != nil || !found {
		return nil, found, err
	}

	result := make([]map[interface{}]interface{}, 0, len(list))
	for i, element := range list {
		elementMap, ok := element.(map[interface{}]interface{})
		if !ok {
			return nil, true, fmt.Errorf("%s at index [%d] is not a map", key, i)
		}
		result = append(result, elementMap)
	}

	return result, true, nil
}
