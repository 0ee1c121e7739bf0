package storage

import (
	"context"
	"testing"

	. "github.com/Comcast/rete/util/testutil"
)

func TestMemStorage(t *testing.T) {
	var (
		ctx = context.Background()
		s   = NewMemStorage()
	)
	if err := s.MakeSession(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	f := &FactState{Id: "a", Seq: 2, Object: "chips"}
	if err := s.WriteState(ctx, "s", []*FactState{f, {Id: "b", Seq: 1, Object: "queso"}}); err != nil {
		t.Fatal(err)
	}
	f.Object = "changed"

	fss, err := s.GetSession(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if js := JS(fss); js != `[{"id":"b","seq":1,"object":"queso"},{"id":"a","seq":2,"object":"chips"}]` {
		t.Fatal(js)
	}

	if err = s.WriteState(ctx, "s", []*FactState{{Id: "a", Deleted: true}}); err != nil {
		t.Fatal(err)
	}
	if fss, _ = s.GetSession(ctx, "s"); len(fss) != 1 {
		t.Fatal(JS(fss))
	}

	if err = s.RemSession(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	if fss, _ = s.GetSession(ctx, "s"); fss != nil {
		t.Fatal(JS(fss))
	}
}

func TestNoopStorage(t *testing.T) {
	var s Storage = &NoopStorage{}
	if err := s.WriteState(context.Background(), "s", []*FactState{{Id: "a"}}); err != nil {
		t.Fatal(err)
	}
	if fss, err := s.GetSession(context.Background(), "s"); err != nil || fss != nil {
		t.Fatal(fss, err)
	}
}
