package value

import "testing"

func TestIsFalsey(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil is falsey", Nil, true},
		{"false is falsey", Bool(false), true},
		{"true is truthy", Bool(true), false},
		{"zero is truthy", Number(0), false},
		{"empty string is truthy", Obj(&ObjString{Chars: ""}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsFalsey(); got != tt.want {
				t.Errorf("IsFalsey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	helloA := &ObjString{Chars: "hello"}
	helloB := &ObjString{Chars: "hello"}

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil equals nil", Nil, Nil, true},
		{"same number", Number(1), Number(1), true},
		{"different number", Number(1), Number(2), false},
		{"number never equals bool", Number(0), Bool(false), false},
		{"same interned string pointer", Obj(helloA), Obj(helloA), true},
		{"distinct pointers with equal text are not equal", Obj(helloA), Obj(helloB), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestStringFormatting(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", Nil, "nil"},
		{"true", Bool(true), "true"},
		{"number", Number(3.5), "3.5"},
		{"whole number has no trailing dot", Number(4), "4"},
		{"string", Obj(&ObjString{Chars: "hi"}), "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
