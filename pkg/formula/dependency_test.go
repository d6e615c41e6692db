// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"errors"
	"testing"
)

func TestParseConstraint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Constraint
		wantErr bool
	}{
		{raw: ">=1.21", want: Constraint{Op: ">=", Version: "v1.21.0"}},
		{raw: "> 4", want: Constraint{Op: ">", Version: "v4.0.0"}},
		{raw: "<=2.0.1", want: Constraint{Op: "<=", Version: "v2.0.1"}},
		{raw: "<3", want: Constraint{Op: "<", Version: "v3.0.0"}},
		{raw: "=1.2.3", want: Constraint{Op: "=", Version: "v1.2.3"}},
		{raw: "==1.2.3", want: Constraint{Op: "=", Version: "v1.2.3"}},
		{raw: "4.3", want: Constraint{Op: ">=", Version: "v4.3.0"}},
		{raw: "v1.22", want: Constraint{Op: ">=", Version: "v1.22.0"}},
		{raw: "master", wantErr: true},
		{raw: "~>1.2", wantErr: true},
		{raw: ">=1.2 <2", wantErr: true},
		{raw: ">=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := ParseConstraint(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConstraint) {
					t.Fatalf("ParseConstraint(%q) error = %v, want ErrInvalidConstraint", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConstraint(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseConstraint(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConstraintSatisfied(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{">=1.21", "go version go1.22.3 linux/amd64", true},
		{">=1.21", "go version go1.20 linux/amd64", false},
		{"4.0", "GNU Make 4.3\nBuilt for x86_64-pc-linux-gnu", true},
		{"<4", "GNU Make 4.3", false},
		{"<=4.3", "GNU Make 4.3", true},
		{">4.3", "GNU Make 4.3", false},
		{"=2.1.0", "tool 2.1", true},
		{">=1", "no version here", false},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" "+tt.version, func(t *testing.T) {
			t.Parallel()

			c, err := ParseConstraint(tt.constraint)
			if err != nil {
				t.Fatalf("ParseConstraint() error = %v", err)
			}
			if got := c.Satisfied(tt.version); got != tt.want {
				t.Errorf("%s.Satisfied(%q) = %v, want %v", c, tt.version, got, tt.want)
			}
		})
	}
}

func TestDependencyConstraint(t *testing.T) {
	t.Parallel()

	if _, ok, err := (Dependency{Name: "make"}).Constraint(); ok || err != nil {
		t.Errorf("Constraint() without version = (%v, %v), want (false, nil)", ok, err)
	}
	if _, ok, err := (Dependency{Name: "go", Version: "1.21"}).Constraint(); !ok || err != nil {
		t.Errorf("Constraint() = (%v, %v), want (true, nil)", ok, err)
	}
	if got := (Dependency{Name: "go", Version: ">=1.21"}).String(); got != "go (>=1.21)" {
		t.Errorf("String() = %q", got)
	}
}
