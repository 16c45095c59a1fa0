package domain

import (
	"encoding/json"
	"testing"
)

func TestItemAccessors(t *testing.T) {
	a := AppItem(App{ID: "a1", Name: "Mail", Path: "/Applications/Mail.app", Page: 2})
	if !a.IsApp() || a.IsFolder() {
		t.Fatalf("expected app variant, got kind=%v", a.Kind)
	}
	if a.ID() != "a1" || a.Name() != "Mail" || a.Page() != 2 {
		t.Fatalf("unexpected accessors: id=%q name=%q page=%d", a.ID(), a.Name(), a.Page())
	}
	f := FolderItem(Folder{ID: "f1", Name: "Work", Page: 1, Apps: []App{{ID: "x"}, {ID: "y"}}})
	if !f.IsFolder() || f.ID() != "f1" || f.Name() != "Work" || f.Page() != 1 {
		t.Fatalf("unexpected folder accessors: %+v", f)
	}
	if !f.Folder.HasMember("y") || f.Folder.HasMember("z") {
		t.Fatalf("HasMember mismatch")
	}
}

func TestWithPageMovesFolderMembers(t *testing.T) {
	f := FolderItem(Folder{ID: "f", Apps: []App{{ID: "x", Page: 0}, {ID: "y", Page: 0}}})
	moved := f.WithPage(3)
	if moved.Page() != 3 {
		t.Fatalf("page = %d, want 3", moved.Page())
	}
	for _, a := range moved.Folder.Apps {
		if a.Page != 3 {
			t.Fatalf("member %s page = %d, want 3", a.ID, a.Page)
		}
	}
	if f.Page() != 0 || f.Folder.Apps[0].Page != 0 {
		t.Fatalf("WithPage mutated the original")
	}
}

func TestPagesCloneIsDeep(t *testing.T) {
	ps := Pages{{FolderItem(Folder{ID: "f", Apps: []App{{ID: "x", Name: "X"}}})}}
	cp := ps.Clone()
	cp[0][0].Folder.Apps[0].Name = "changed"
	cp[0][0].Folder.Name = "renamed"
	if ps[0][0].Folder.Apps[0].Name != "X" || ps[0][0].Folder.Name != "" {
		t.Fatalf("clone aliases the original: %+v", ps[0][0].Folder)
	}
}

func TestLocate(t *testing.T) {
	ps := Pages{
		{AppItem(App{ID: "a", Path: "/a"})},
		{AppItem(App{ID: "b", Path: "/b"}), FolderItem(Folder{ID: "f", Apps: []App{{ID: "c", Path: "/c"}}})},
	}
	l, ok := ps.Locate("f")
	if !ok || l.Page != 1 || l.Index != 1 || l.InFolder() {
		t.Fatalf("Locate(f) = %+v, %v", l, ok)
	}
	l, ok = ps.Locate("c")
	if !ok || l.Page != 1 || l.Index != 1 || l.Member != 0 {
		t.Fatalf("Locate(c) = %+v, %v", l, ok)
	}
	if _, ok := ps.Locate("missing"); ok {
		t.Fatalf("expected missing id not to be found")
	}
	l, ok = ps.LocatePath("/c")
	if !ok || l.Member != 0 {
		t.Fatalf("LocatePath(/c) = %+v, %v", l, ok)
	}
	if a, ok := ps.AppByID("c"); !ok || a.Path != "/c" {
		t.Fatalf("AppByID(c) = %+v, %v", a, ok)
	}
	if got := ps.IDs(); len(got) != 3 || got[0] != "a" || got[2] != "f" {
		t.Fatalf("IDs = %v", got)
	}
}

func TestItemJSONRoundTrip(t *testing.T) {
	in := Pages{{AppItem(App{ID: "a", Name: "A", Path: "/a"}), FolderItem(Folder{ID: "f", Name: "F", Apps: []App{{ID: "b", Path: "/b"}}})}}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Pages
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 2 || !got[0][1].IsFolder() || got[0][1].Folder.Apps[0].Path != "/b" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
