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
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openziti/xoperation"
)

const (
	GreeterBinding = "greeter"

	CallerHeader         = "X-Caller"
	GreeterVersionHeader = "X-Greeter-Version"
	GreeterVersion       = "1"
)

type Greeting struct {
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Caller  string    `json:"caller,omitempty"`
	Updated time.Time `json:"updated"`
}

// greetings is the in memory store behind the greeter operations.
type greetings struct {
	lock   sync.RWMutex
	byName map[string]*Greeting
}

func newGreetings() *greetings {
	return &greetings{byName: map[string]*Greeting{}}
}

func (store *greetings) get(name string, caller string) (*Greeting, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	if greeting, found := store.byName[strings.ToLower(name)]; found {
		result := *greeting
		result.Caller = caller
		return &result, nil
	}

	return &Greeting{
		Name:    name,
		Message: "hello, " + name,
		Caller:  caller,
	}, nil
}

func (store *greetings) list() ([]*Greeting, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]*Greeting, 0, len(store.byName))
	for _, greeting := range store.byName {
		copied := *greeting
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func (store *greetings) put(name string, greeting *Greeting) (*Greeting, error) {
	if greeting == nil || greeting.Message == "" {
		return nil, badRequest()
	}

	store.lock.Lock()
	defer store.lock.Unlock()

	stored := &Greeting{
		Name:    name,
		Message: greeting.Message,
		Updated: time.Now().UTC(),
	}
	store.byName[strings.ToLower(name)] = stored

	result := *stored
	return &result, nil
}

func (store *greetings) remove(name string) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, found := store.byName[strings.ToLower(name)]; !found {
		return xoperation.NewResponseError(xoperation.NewResponse(http.StatusNotFound))
	}
	delete(store.byName, strings.ToLower(name))

	return nil
}

func badRequest() error {
	return xoperation.NewResponseError(xoperation.NewResponse(http.StatusBadRequest))
}

// newGreeterOperations declares the greeter API. The caller request handler reads the X-Caller header into the
// "caller" input of GetGreeting and the version response handler stamps every response.
func newGreeterOperations(store *greetings) []*xoperation.Operation {
	callerHandler := xoperation.NewHandler1("request", "caller", func(request *http.Request) (string, error) {
		return request.Header.Get(CallerHeader), nil
	})

	versionHandler := xoperation.NewHandler1("response", "response", func(response *xoperation.Response) (*xoperation.Response, error) {
		response.Header.Set(GreeterVersionHeader, GreeterVersion)
		return response, nil
	})

	getGreeting := xoperation.NewOperation2("GetGreeting", http.MethodGet, "greetings/{name}", "name", "caller", store.get).
		WithRequestHandlers(callerHandler)

	listGreetings := xoperation.NewOperation0("ListGreetings", http.MethodGet, "greetings", store.list)
	putGreeting := xoperation.NewOperation2("PutGreeting", http.MethodPut, "greetings/{name}", "name", "greeting", store.put)
	deleteGreeting := xoperation.NewAction1("DeleteGreeting", http.MethodDelete, "greetings/{name}", "name", store.remove)

	operations := []*xoperation.Operation{getGreeting, listGreetings, putGreeting, deleteGreeting}
	for _, operation := range operations {
		operation.WithResponseHandlers(versionHandler)
	}

	return operations
}

func newRegistry() *xoperation.RegistryMap {
	registry := xoperation.NewRegistryMap()
	if err := registry.Add(xoperation.NewServiceFactory(GreeterBinding, newGreeterOperations(newGreetings())...)); err != nil {
		panic(err)
	}
	return registry
}
