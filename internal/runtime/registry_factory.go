// SPDX-License-Identifier: MPL-2.0

package runtime

import "github.com/cellarhq/cellar/pkg/formula"

// NewDefaultRegistry returns a registry with the native and virtual runtimes.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(formula.RuntimeNative, NewNativeRuntime())
	reg.Register(formula.RuntimeVirtual, NewVirtualRuntime())
	return reg
}
