// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logout

import (
	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional logger.  Valid for: Coordinator
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *coordinatorOptions:
			v.withLogger = l
		}
	}
}

// WithStateGenerator provides an optional func for generating logout states,
// which is useful for tests.  Valid for: Coordinator
func WithStateGenerator(gen func() (string, error)) Option {
	return func(o interface{}) {
		if gen == nil {
			return
		}
		switch v := o.(type) {
		case *coordinatorOptions:
			v.withStateGenerator = gen
		}
	}
}
