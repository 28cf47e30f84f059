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

/*
Package xoperation binds HTTP requests to service operations through a pipeline of operation handlers and hosts
the resulting services on http.Server's built from configuration files.

# Operations and pipelines

An Operation describes a service operation: its name, HTTP method, URI template, typed input parameters and an
optional return value, plus the Invoker that runs it. A Service compiles one Pipeline per Operation:

	[source, request handlers..., service operation, response handlers..., sink]

The source produces the *http.Request and the sink consumes the *Response and the request. Every OperationHandler
declares named, typed input and output parameters. NewPipelineInfo binds each input to the outputs of earlier
handlers once, at configuration time. Inputs bind to every output with the same name (compared case-insensitively),
marker types (*http.Request, *Response, *Content) bind to every output of their type, and otherwise an input binds to
the single output whose type it accepts. Zero or several candidates are reported as a *BindingError.

At request time a PipelineContext holds one flat value slice. Each handler reads its inputs from a contiguous range
and its outputs are scattered to the slots they were bound to, so no lookups happen per request.

# Operation selection

UriAndMethodOperationSelector picks the operation for a request by URI template and HTTP method. Literal segments
beat variables, which beat a trailing wildcard. A request that differs from a template only by a trailing slash is
redirected (AutoRedirect) or served (Ignore). Requests that match a template under another method are answered with
405 and an Allow header, everything else with 404 unless a catch-all operation is declared.

# Hosting

Each Instance defines a configuration section (default `web`) holding ServerConfig's. Each ServerConfig listens on
one or more BindPointConfig's and hosts the ApiHandler's produced by ApiHandlerFactory's found in a Registry for
its ApiConfig's. ServiceFactory is the ApiHandlerFactory for a set of operations. When a ServerConfig hosts several
APIs, a DemuxFactory builds the http.Handler that forwards requests to the correct ApiHandler. PathPrefixDemuxFactory
and IsHandledDemuxFactory are provided.
*/
package xoperation
