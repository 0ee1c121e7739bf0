package testutil

import (
	"reflect"
	"testing"

	"github.com/Comcast/rete/core"
)

type Person struct {
	Name string
	Age  int
}

func TestJS(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{
			name: "simple struct",
			arg:  Person{"John Doe", 30},
			want: `{"Name":"John Doe","Age":30}`,
		},
		{
			name: "nested struct",
			arg: struct {
				Person Person
				ID     int
			}{Person{"Jane Doe", 25}, 1},
			want: `{"Person":{"Name":"Jane Doe","Age":25},"ID":1}`,
		},
		{
			name: "unmarshalable",
			arg:  make(chan int),
			want: "(chan int)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JS(tt.arg)
			if tt.name == "unmarshalable" {
				if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
					t.Errorf("JS() = %v, want prefix %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("JS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDwimjs(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want interface{}
	}{
		{
			name: "valid JSON string",
			arg:  `{"name":"John Doe","age":30}`,
			want: map[string]interface{}{"name": "John Doe", "age": float64(30)},
		},
		{
			name: "valid JSON bytes",
			arg:  []byte(`{"name":"Jane Doe","age":25}`),
			want: map[string]interface{}{"name": "Jane Doe", "age": float64(25)},
		},
		{
			name: "non-string, non-byte-slice type",
			arg:  12345,
			want: 12345,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dwimjs(tt.arg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dwimjs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDwimjsBad(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("didn't panic")
		}
	}()
	Dwimjs("hello world")
}

func TestSameJS(t *testing.T) {
	if !SameJS(map[string]interface{}{"b": 2, "a": 1}, `{"a":1,"b":2}`) {
		t.Fatal("should be the same")
	}
	if SameJS([]int{1, 2}, `[2,1]`) {
		t.Fatal("order matters for arrays")
	}
}

func TestJSFacts(t *testing.T) {
	f := core.NewFact(1, Dwimjs(`{"likes":"tacos"}`))
	if got := JS(f); got != `{"likes":"tacos"}` {
		t.Fatal(got)
	}
	g := core.NewFact(2, "chips")
	if got := JS([]*core.Fact{f, g}); got != `[{"likes":"tacos"},"chips"]` {
		t.Fatal(got)
	}
	tup := core.NewTuple(3, core.NewRootTuple(0), f)
	if got := JS(tup); got != `[{"likes":"tacos"}]` {
		t.Fatal(got)
	}
}

func TestDwimjss(t *testing.T) {
	xs := Dwimjss(`{"a":1}`, []byte(`[2]`), 3)
	if got := JS(xs); got != `[{"a":1},[2],3]` {
		t.Fatal(got)
	}
}
