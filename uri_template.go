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
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

type segmentKind int

const (
	wildcardSegment segmentKind = iota + 1
	variableSegment
	literalSegment
)

type templateSegment struct {
	kind  segmentKind
	value string
}

type queryPart struct {
	name     string
	value    string
	variable bool
}

// UriTemplate is a parsed URI template relative to a service's base address. Supported forms are literal
// segments, "{name}" variable segments, a final "{*name}" wildcard segment matching zero or more segments and
// "name={var}" or "name=literal" query parts. The template "*" matches every path.
type UriTemplate struct {
	raw           string
	segments      []templateSegment
	wildcard      *templateSegment
	trailingSlash bool
	query         []queryPart
}

// ParseUriTemplate parses template.
func ParseUriTemplate(template string) (*UriTemplate, error) {
	result := &UriTemplate{raw: template}

	path, query, hasQuery := strings.Cut(template, "?")
	path = strings.TrimPrefix(path, "/")

	if path == "*" {
		result.wildcard = &templateSegment{kind: wildcardSegment}
		path = ""
	}

	if path != "" {
		result.trailingSlash = strings.HasSuffix(path, "/")
		path = strings.TrimSuffix(path, "/")
	}

	names := map[string]struct{}{}
	addName := func(name string) error {
		key := strings.ToLower(name)
		if _, found := names[key]; found {
			return errors.Errorf("variable [%s] appears more than once in template [%s]", name, template)
		}
		names[key] = struct{}{}
		return nil
	}

	if path != "" {
		parts := strings.Split(path, "/")
		for i, part := range parts {
			segment, err := parseSegment(part)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid template [%s]", template)
			}

			if segment.kind != literalSegment {
				if err := addName(segment.value); err != nil {
					return nil, err
				}
			}

			if segment.kind == wildcardSegment {
				if i != len(parts)-1 || result.trailingSlash {
					return nil, errors.Errorf("invalid template [%s]: a wildcard segment must be the last segment", template)
				}
				result.wildcard = &segment
				continue
			}

			result.segments = append(result.segments, segment)
		}
	}

	if hasQuery && query != "" {
		for _, pair := range strings.Split(query, "&") {
			name, value, _ := strings.Cut(pair, "=")
			if name == "" {
				return nil, errors.Errorf("invalid template [%s]: empty query parameter name", template)
			}

			part := queryPart{name: name, value: value}
			if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
				part.variable = true
				part.value = value[1 : len(value)-1]
				if part.value == "" || strings.ContainsAny(part.value, "{}*") {
					return nil, errors.Errorf("invalid template [%s]: malformed query variable [%s]", template, value)
				}
				if err := addName(part.value); err != nil {
					return nil, err
				}
			} else if strings.ContainsAny(value, "{}") {
				return nil, errors.Errorf("invalid template [%s]: query values must be a literal or a single variable", template)
			}

			result.query = append(result.query, part)
		}
	}

	return result, nil
}

func parseSegment(part string) (templateSegment, error) {
	if part == "" {
		return templateSegment{}, errors.New("empty path segment")
	}

	if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
		name := part[1 : len(part)-1]
		kind := variableSegment
		if strings.HasPrefix(name, "*") {
			kind = wildcardSegment
			name = name[1:]
		}
		if name == "" || strings.ContainsAny(name, "{}*") {
			return templateSegment{}, fmt.Errorf("malformed variable segment [%s]", part)
		}
		return templateSegment{kind: kind, value: name}, nil
	}

	if strings.ContainsAny(part, "{}") {
		return templateSegment{}, fmt.Errorf("segment [%s] mixes literal text and variables", part)
	}

	if unescaped, err := url.PathUnescape(part); err == nil {
		part = unescaped
	}

	return templateSegment{kind: literalSegment, value: part}, nil
}

func (template *UriTemplate) String() string {
	return template.raw
}

// PathSegmentVariableNames returns the names of the path variables, including the wildcard, in template order.
func (template *UriTemplate) PathSegmentVariableNames() []string {
	var names []string
	for _, segment := range template.segments {
		if segment.kind == variableSegment {
			names = append(names, segment.value)
		}
	}
	if template.wildcard != nil && template.wildcard.value != "" {
		names = append(names, template.wildcard.value)
	}
	return names
}

// QueryValueVariableNames returns the names of the query variables in template order.
func (template *UriTemplate) QueryValueVariableNames() []string {
	var names []string
	for _, part := range template.query {
		if part.variable {
			names = append(names, part.value)
		}
	}
	return names
}

// VariableNames returns every variable name in the template, path variables first.
func (template *UriTemplate) VariableNames() []string {
	return append(template.PathSegmentVariableNames(), template.QueryValueVariableNames()...)
}

// IsEquivalentTo reports whether template and other match exactly the same URIs. Variable names are not
// significant.
func (template *UriTemplate) IsEquivalentTo(other *UriTemplate) bool {
	if len(template.segments) != len(other.segments) ||
		(template.wildcard == nil) != (other.wildcard == nil) ||
		template.trailingSlash != other.trailingSlash ||
		len(template.query) != len(other.query) {
		return false
	}

	for i, segment := range template.segments {
		otherSegment := other.segments[i]
		if segment.kind != otherSegment.kind {
			return false
		}
		if segment.kind == literalSegment && !strings.EqualFold(segment.value, otherSegment.value) {
			return false
		}
	}

	otherQuery := map[string]queryPart{}
	for _, part := range other.query {
		otherQuery[strings.ToLower(part.name)] = part
	}

	for _, part := range template.query {
		otherPart, found := otherQuery[strings.ToLower(part.name)]
		if !found || otherPart.variable != part.variable {
			return false
		}
		if !part.variable && otherPart.value != part.value {
			return false
		}
	}

	return true
}

// precedence ranks the template for choosing between several matches: literal segments outrank variables which
// outrank a wildcard, compared left to right.
func (template *UriTemplate) precedence() []int {
	ranks := make([]int, 0, len(template.segments)+1)
	for _, segment := range template.segments {
		ranks = append(ranks, int(segment.kind))
	}
	if template.wildcard != nil {
		ranks = append(ranks, int(wildcardSegment))
	}
	return ranks
}

func (template *UriTemplate) queryLiteralCount() int {
	count := 0
	for _, part := range template.query {
		if !part.variable {
			count++
		}
	}
	return count
}

func comparePrecedence(a, b *UriTemplate) int {
	left, right := a.precedence(), b.precedence()
	for i := 0; i < len(left) && i < len(right); i++ {
		if left[i] != right[i] {
			return left[i] - right[i]
		}
	}
	// with equal prefixes the longer template ends in a wildcard that matched nothing
	if len(left) != len(right) {
		return len(right) - len(left)
	}
	return a.queryLiteralCount() - b.queryLiteralCount()
}

// UriTemplateMatch is the result of matching a URI against a UriTemplate.
type UriTemplateMatch struct {
	Template             *UriTemplate
	Data                 interface{}
	BaseUri              *url.URL
	RequestUri           *url.URL
	BoundVariables       map[string]string
	RelativePathSegments []string
	WildcardPathSegments []string

	// impliedTrailingSlash is set when the template requires a trailing slash the request did not have and the
	// match only succeeded because the wildcard accepted zero segments.
	impliedTrailingSlash bool
}

// Variable returns the value bound to the named variable, ignoring case.
func (match *UriTemplateMatch) Variable(name string) (string, bool) {
	value, found := match.BoundVariables[strings.ToLower(name)]
	return value, found
}

// Match matches candidate against the template relative to baseAddress. It returns nil when candidate does not
// match.
func (template *UriTemplate) Match(baseAddress *url.URL, candidate *url.URL) *UriTemplateMatch {
	relative, ok := relativePath(baseAddress, candidate)
	if !ok {
		return nil
	}

	requestTrailingSlash := strings.HasSuffix(relative, "/")
	relative = strings.TrimSuffix(relative, "/")

	var segments []string
	if relative != "" {
		for _, part := range strings.Split(relative, "/") {
			if unescaped, err := url.PathUnescape(part); err == nil {
				part = unescaped
			}
			segments = append(segments, part)
		}
	}

	if template.wildcard == nil {
		if len(segments) != len(template.segments) {
			return nil
		}
		if len(segments) > 0 && requestTrailingSlash != template.trailingSlash {
			return nil
		}
	} else if len(segments) < len(template.segments) {
		return nil
	}

	match := &UriTemplateMatch{
		Template:             template,
		BaseUri:              baseAddress,
		RequestUri:           candidate,
		BoundVariables:       map[string]string{},
		RelativePathSegments: segments,
	}

	for i, segment := range template.segments {
		switch segment.kind {
		case literalSegment:
			if !strings.EqualFold(segment.value, segments[i]) {
				return nil
			}
		case variableSegment:
			match.BoundVariables[strings.ToLower(segment.value)] = segments[i]
		}
	}

	if template.wildcard != nil {
		match.WildcardPathSegments = segments[len(template.segments):]
		if template.wildcard.value != "" {
			match.BoundVariables[strings.ToLower(template.wildcard.value)] = strings.Join(match.WildcardPathSegments, "/")
		}
		match.impliedTrailingSlash = len(match.WildcardPathSegments) == 0 && len(template.segments) > 0 && !requestTrailingSlash
	}

	if len(template.query) > 0 {
		values := candidate.Query()
		for _, part := range template.query {
			value := values.Get(part.name)
			if part.variable {
				match.BoundVariables[strings.ToLower(part.value)] = value
			} else if value != part.value {
				return nil
			}
		}
	}

	return match
}

// relativePath returns the escaped path of candidate below baseAddress. A candidate equal to the base address
// without its trailing slash is treated as the base address itself.
func relativePath(baseAddress *url.URL, candidate *url.URL) (string, bool) {
	basePath := normalizedBasePath(baseAddress)
	path := candidate.EscapedPath()
	if path == "" {
		path = "/"
	}

	if strings.EqualFold(path+"/", basePath) {
		return "", true
	}

	if len(path) < len(basePath) || !strings.EqualFold(path[:len(basePath)], basePath) {
		return "", false
	}

	return path[len(basePath):], true
}

func normalizedBasePath(baseAddress *url.URL) string {
	if baseAddress == nil {
		return "/"
	}
	path := baseAddress.EscapedPath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}
