package rtval

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{None(), false},
		{Int(0), false},
		{Int(3), true},
		{Float(0), false},
		{Float(0.1), true},
		{Str(""), false},
		{Str("x"), true},
		{Bool(false), false},
		{Bool(true), true},
		{List(), false},
		{List(Int(1)), true},
		{Dict(nil), false},
		{Obj("Dog"), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("Truthy(%s) = %v, want %v", tt.v.Repr(), got, tt.want)
		}
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{None(), "None"},
		{Int(-7), "-7"},
		{Float(1.5), "1.5"},
		{Float(2), "2.0"},
		{Bool(true), "True"},
		{Str("hi"), "hi"},
		{List(Int(1), Str("a")), "[1, a]"},
		{Dict(map[string]Value{"b": Int(2), "a": Int(1)}), `{"a": 1, "b": 2}`},
		{Obj("Dog"), "<Dog object>"},
	}
	for _, tt := range tests {
		if got := tt.v.Repr(); got != tt.want {
			t.Errorf("Repr = %q, want %q", got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	if v, err := Add(Int(2), Int(3)); err != nil || v.AsInt() != 5 {
		t.Errorf("2+3 = %v (%v)", v, err)
	}
	if v, err := Add(Int(2), Float(0.5)); err != nil || v.AsFloat() != 2.5 {
		t.Errorf("2+0.5 = %v (%v)", v, err)
	}
	if v, err := Add(Str("a"), Str("b")); err != nil || v.AsStr() != "ab" {
		t.Errorf(`"a"+"b" = %v (%v)`, v, err)
	}
	if v, err := Add(List(Int(1)), List(Int(2))); err != nil || len(v.AsList()) != 2 {
		t.Errorf("list concat = %v (%v)", v, err)
	}
	if _, err := Add(Int(1), Str("x")); err == nil {
		t.Error("1 + str accepted")
	}

	// Division always yields float.
	v, err := Div(Int(7), Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != KindFloat || v.AsFloat() != 3.5 {
		t.Errorf("7/2 = %v, want 3.5", v)
	}
	if _, err := Div(Int(1), Int(0)); err == nil {
		t.Error("division by zero accepted")
	}

	if v, _ := Mul(Int(3), Int(4)); v.AsInt() != 12 {
		t.Errorf("3*4 = %v", v)
	}
	if v, _ := Sub(Float(1.5), Int(1)); v.AsFloat() != 0.5 {
		t.Errorf("1.5-1 = %v", v)
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(2), Float(2)) {
		t.Error("2 != 2.0")
	}
	if Equal(Int(2), Str("2")) {
		t.Error("2 == \"2\"")
	}
	if !Equal(List(Int(1), Int(2)), List(Int(1), Int(2))) {
		t.Error("equal lists differ")
	}
	if Equal(List(Int(1)), List(Int(2))) {
		t.Error("unequal lists match")
	}
	a, b := Obj("Dog"), Obj("Dog")
	if Equal(a, b) {
		t.Error("distinct objects compare equal")
	}
	if !Equal(a, a) {
		t.Error("object not equal to itself")
	}
}

func TestAttrs(t *testing.T) {
	dog := Obj("Dog")
	if err := SetAttr(dog, "name", Str("rex")); err != nil {
		t.Fatal(err)
	}
	v, err := GetAttr(dog, "name")
	if err != nil {
		t.Fatal(err)
	}
	if v.AsStr() != "rex" {
		t.Errorf("name = %q", v.AsStr())
	}
	if _, err := GetAttr(dog, "age"); err == nil {
		t.Error("missing attribute read succeeded")
	}
	if err := SetAttr(Int(1), "x", None()); err == nil {
		t.Error("attribute write on int succeeded")
	}
}

func TestZeroValueIsNone(t *testing.T) {
	var v Value
	if v.Kind() != KindNone || v.Truthy() {
		t.Errorf("zero Value = %v", v)
	}
}

func TestBox(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(3), "3"},
		{7, "7"},
		{2.5, "2.5"},
		{"hi", "hi"},
		{true, "True"},
		{nil, "None"},
		{Int(9), "9"},
	}
	for _, tt := range tests {
		if got := Box(tt.in).Repr(); got != tt.want {
			t.Errorf("Box(%v).Repr() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMod(t *testing.T) {
	if v, err := Mod(Int(7), Int(3)); err != nil || v.AsInt() != 1 {
		t.Errorf("7%%3 = %v (%v)", v, err)
	}
	if v, err := Mod(Float(7.5), Int(2)); err != nil || v.AsFloat() != 1.5 {
		t.Errorf("7.5%%2 = %v (%v)", v, err)
	}
	if _, err := Mod(Int(1), Int(0)); err == nil {
		t.Error("modulo by zero accepted")
	}
	if _, err := Mod(Str("a"), Int(2)); err == nil {
		t.Error("str %% int accepted")
	}
}

func TestBinOp(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want string
	}{
		{"+", Int(2), Int(3), "5"},
		{"+", Str("a"), Str("b"), "ab"},
		{"-", Int(5), Float(0.5), "4.5"},
		{"*", Int(3), Int(4), "12"},
		{"/", Int(7), Int(2), "3.5"},
		{"%", Int(7), Int(3), "1"},
	}
	for _, tt := range tests {
		if got := BinOp(tt.op, tt.a, tt.b).Repr(); got != tt.want {
			t.Errorf("BinOp(%q, %s, %s) = %s, want %s", tt.op, tt.a.Repr(), tt.b.Repr(), got, tt.want)
		}
	}
}

func TestBinOpMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("int + str did not panic")
		}
	}()
	BinOp("+", Int(1), Str("x"))
}

func TestCompareOp(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want bool
	}{
		{"==", Int(2), Float(2), true},
		{"!=", Int(2), Str("2"), true},
		{"<", Int(1), Int(2), true},
		{"<=", Float(2), Int(2), true},
		{">", Str("b"), Str("a"), true},
		{">=", Str("a"), Str("b"), false},
	}
	for _, tt := range tests {
		if got := CompareOp(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("CompareOp(%q, %s, %s) = %v, want %v", tt.op, tt.a.Repr(), tt.b.Repr(), got, tt.want)
		}
	}
}

func TestCompareOpOrderedMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ordered int < str did not panic")
		}
	}()
	CompareOp("<", Int(1), Str("x"))
}
