package policy

import (
	"testing"
)

var allSubjects = []Subject{Session, Restaurant, Menu}
var allActions = []Action{Create, Edit, Delete, Claim, SuggestChanges}

func TestAnonymousDeniedEverythingButSessionCreate(t *testing.T) {
	facts := []Ownership{
		{},
		{CreatorID: "u1"},
		{Admins: []string{"u1"}, BelongsToRestaurant: true},
	}
	for _, s := range allSubjects {
		for _, a := range allActions {
			for _, o := range facts {
				got := Evaluate(Anonymous, s, a, o)
				want := s == Session && a == Create
				if got != want {
					t.Fatalf("Evaluate(anon, %s, %s, %+v) = %v, want %v", s, a, o, got, want)
				}
			}
		}
	}
}

func TestSessionCreateDeniedWhenLoggedIn(t *testing.T) {
	if Evaluate(Caller{ID: "u1"}, Session, Create, Ownership{}) {
		t.Fatalf("logged in caller may not create a session")
	}
}

func TestRestaurantCreateAnyAuthenticated(t *testing.T) {
	if !Evaluate(Caller{ID: "u9"}, Restaurant, Create, Ownership{}) {
		t.Fatalf("authenticated caller should create restaurants")
	}
}

func TestCreatorGraceWhileUnclaimed(t *testing.T) {
	o := Ownership{CreatorID: "U1"}
	for _, r := range []Rule{{Restaurant, Edit}, {Menu, Create}} {
		if !Evaluate(Caller{ID: "U1"}, r.Subject, r.Action, o) {
			t.Fatalf("%s: creator denied on unclaimed listing", r)
		}
		if Evaluate(Caller{ID: "U2"}, r.Subject, r.Action, o) {
			t.Fatalf("%s: stranger allowed on unclaimed listing", r)
		}
	}
}

func TestRestaurantDeleteIsAdminsOnly(t *testing.T) {
	if Evaluate(Caller{ID: "U1"}, Restaurant, Delete, Ownership{CreatorID: "U1"}) {
		t.Fatalf("creator of unclaimed listing allowed to delete it")
	}
	claimed := Ownership{CreatorID: "U1", Admins: []string{"U3"}}
	if Evaluate(Caller{ID: "U1"}, Restaurant, Delete, claimed) {
		t.Fatalf("creator allowed to delete a claimed listing")
	}
	if !Evaluate(Caller{ID: "U3"}, Restaurant, Delete, claimed) {
		t.Fatalf("admin denied delete")
	}
	if Evaluate(Caller{}, Restaurant, Delete, Ownership{Admins: []string{""}}) {
		t.Fatalf("anonymous caller matched an empty admin id")
	}
}

func TestCreatorLosesRightsOnceClaimed(t *testing.T) {
	o := Ownership{CreatorID: "U1", Admins: []string{"U3"}}
	if Evaluate(Caller{ID: "U1"}, Restaurant, Edit, o) {
		t.Fatalf("creator kept edit rights after claim")
	}
	if !Evaluate(Caller{ID: "U3"}, Restaurant, Edit, o) {
		t.Fatalf("admin denied edit")
	}

	o.Admins = append(o.Admins, "U1")
	if !Evaluate(Caller{ID: "U1"}, Restaurant, Edit, o) {
		t.Fatalf("creator listed as admin denied edit")
	}
}

func TestEmptyCreatorNeverMatches(t *testing.T) {
	if Evaluate(Caller{ID: "U1"}, Restaurant, Edit, Ownership{CreatorID: ""}) {
		t.Fatalf("empty creator id matched a caller")
	}
}

func TestClaim(t *testing.T) {
	if !Evaluate(Caller{ID: "U2"}, Restaurant, Claim, Ownership{CreatorID: "U1"}) {
		t.Fatalf("unclaimed restaurant should be claimable")
	}
	if !Evaluate(Caller{ID: "U1"}, Restaurant, Claim, Ownership{CreatorID: "U1"}) {
		t.Fatalf("creator should be able to claim an unclaimed restaurant")
	}
	claimed := Ownership{CreatorID: "U1", Admins: []string{"U2"}}
	for _, id := range []string{"U1", "U2", "U3"} {
		if Evaluate(Caller{ID: id}, Restaurant, Claim, claimed) {
			t.Fatalf("claim allowed for %s on claimed restaurant", id)
		}
	}
}

func TestSuggestChanges(t *testing.T) {
	cases := []struct {
		name   string
		caller string
		o      Ownership
		want   bool
	}{
		{"outsider on unclaimed", "U2", Ownership{CreatorID: "U1"}, true},
		{"creator on unclaimed edits directly", "U1", Ownership{CreatorID: "U1"}, false},
		{"creator on claimed listing", "U1", Ownership{CreatorID: "U1", Admins: []string{"U3"}}, true},
		{"admin edits directly", "U3", Ownership{CreatorID: "U1", Admins: []string{"U3"}}, false},
		{"outsider on claimed", "U4", Ownership{CreatorID: "U1", Admins: []string{"U3"}}, true},
		{"no creator recorded", "U4", Ownership{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(Caller{ID: tc.caller}, Restaurant, SuggestChanges, tc.o)
			if got != tc.want {
				t.Fatalf("suggestChanges = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMenuMutationsRequireBelongsToRestaurant(t *testing.T) {
	for _, a := range []Action{Edit, Delete} {
		foreign := Ownership{Admins: []string{"U1"}, BelongsToRestaurant: false}
		if Evaluate(Caller{ID: "U1"}, Menu, a, foreign) {
			t.Fatalf("Menu.%s allowed for a menu of another restaurant", a)
		}
		own := Ownership{Admins: []string{"U1"}, BelongsToRestaurant: true}
		if !Evaluate(Caller{ID: "U1"}, Menu, a, own) {
			t.Fatalf("Menu.%s denied to admin", a)
		}
		grace := Ownership{CreatorID: "U1", BelongsToRestaurant: true}
		if !Evaluate(Caller{ID: "U1"}, Menu, a, grace) {
			t.Fatalf("Menu.%s denied to creator of unclaimed listing", a)
		}
		if Evaluate(Caller{ID: "U2"}, Menu, a, grace) {
			t.Fatalf("Menu.%s allowed to stranger", a)
		}
	}
}

func TestUnknownRuleDenies(t *testing.T) {
	if Evaluate(Caller{ID: "U1"}, Session, Delete, Ownership{}) {
		t.Fatalf("missing rule should deny")
	}
	if Evaluate(Caller{ID: "U1"}, Menu, Claim, Ownership{Admins: nil}) {
		t.Fatalf("Menu.claim has no entry and should deny")
	}
}

func TestMustRulePanicsOnMissingEntry(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustRule did not panic for Session.delete")
		}
	}()
	MustRule(Session, Delete)
}

func TestDefaultTableRules(t *testing.T) {
	got := Default().Rules()
	if len(got) != 9 {
		t.Fatalf("len(Rules()) = %d, want 9", len(got))
	}
	if got[0] != (Rule{Menu, Create}) {
		t.Fatalf("first rule = %s, want Menu.create", got[0])
	}
	if last := got[len(got)-1]; last != (Rule{Session, Create}) {
		t.Fatalf("last rule = %s, want Session.create", last)
	}
	if Default() != Default() {
		t.Fatalf("Default() should return the same table")
	}
}

func TestParse(t *testing.T) {
	s, err := ParseSubject("restaurant")
	if err != nil || s != Restaurant {
		t.Fatalf("ParseSubject = %q, %v", s, err)
	}
	a, err := ParseAction("suggestchanges")
	if err != nil || a != SuggestChanges {
		t.Fatalf("ParseAction = %q, %v", a, err)
	}
	if _, err := ParseAction("publish"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
