package directory

import (
	"context"
	"errors"
	"testing"
)

func testDirectory() *Static {
	return NewStatic(
		[]User{
			{ID: "ada", DisplayName: "Ada Lovelace", Active: true},
			{ID: "bob", DisplayName: "Bob Martin", Active: true},
			{ID: "eve", DisplayName: "Eve Dormant"},
		},
		[]Group{
			{ID: "g1", Name: "Teachers", Members: []string{"ada", "bob", "ghost"}},
		},
	)
}

func TestUser(t *testing.T) {
	d := testDirectory()
	u, err := d.User(context.Background(), "bob")
	if err != nil || u.DisplayName != "Bob Martin" {
		t.Fatalf("got (%+v, %v)", u, err)
	}
	if _, err := d.User(context.Background(), "nobody"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestVisible(t *testing.T) {
	users, groups, err := testDirectory().Visible(context.Background(), "ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].ID != "bob" || users[1].ID != "eve" {
		t.Fatalf("unexpected users %+v", users)
	}
	if len(groups) != 1 || groups[0].Name != "Teachers" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestExpand(t *testing.T) {
	exp, err := testDirectory().Expand(context.Background(), []string{"bob", "g1", "zed", "zed"})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, u := range exp.Users {
		ids = append(ids, u.ID)
	}
	if len(ids) != 2 || ids[0] != "bob" || ids[1] != "ada" {
		t.Fatalf("unexpected users %v", ids)
	}
	if len(exp.Groups) != 1 || len(exp.Unknown) != 1 || exp.Unknown[0] != "zed" {
		t.Fatalf("unexpected expansion %+v", exp)
	}
}
