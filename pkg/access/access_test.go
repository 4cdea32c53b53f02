package access

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/jllopis/adminqa/pkg/dataset"
)

func scenario() *dataset.Dataset {
	return dataset.New(nil, []dataset.Record{
		{Name: "Asha", Grade: 8, Region: "North"},
		{Name: "Ben", Grade: 9, Region: "South"},
		{Name: "Chen", Grade: 8, Region: "South"},
	})
}

func names(ds *dataset.Dataset) []string {
	out := []string{}
	for _, r := range ds.Records() {
		out = append(out, r.Name)
	}
	return out
}

func TestFilterScenarios(t *testing.T) {
	tests := []struct {
		role Role
		want []string
	}{
		{RoleGrade8, []string{"Asha", "Chen"}},
		{RoleRegionNorth, []string{"Asha"}},
		{RoleRegionSouth, []string{"Ben"}},
		{RoleSuperAdmin, []string{"Asha", "Ben", "Chen"}},
		{Role("Librarian"), []string{}},
		{Role(""), []string{}},
		{Role("admin - grade 8"), []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := names(Filter(scenario(), tt.role))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRegionSouthScopesByGrade(t *testing.T) {
	ds := dataset.New(nil, []dataset.Record{
		{Name: "South8", Grade: 8, Region: "South"},
		{Name: "North9", Grade: 9, Region: "North"},
	})
	got := names(Filter(ds, RoleRegionSouth))
	if !reflect.DeepEqual(got, []string{"North9"}) {
		t.Errorf("expected grade 9 rows regardless of region, got %v", got)
	}
}

func TestFilterKeepsColumns(t *testing.T) {
	ds := dataset.New([]string{"name", "grade", "region", "homework"}, []dataset.Record{
		{Name: "Asha", Grade: 8, Region: "North", Fields: map[string]string{"homework": "yes"}},
	})
	out := Filter(ds, Role("unknown"))
	if !out.Empty() {
		t.Fatalf("expected empty result")
	}
	if !reflect.DeepEqual(out.Columns(), ds.Columns()) {
		t.Errorf("expected columns to be preserved, got %v", out.Columns())
	}
}

func TestFilterEmptyAndNilInput(t *testing.T) {
	for _, role := range Roles() {
		if !Filter(dataset.New(nil, nil), role).Empty() {
			t.Errorf("%s: expected empty output for empty input", role)
		}
		if !Filter(nil, role).Empty() {
			t.Errorf("%s: expected empty output for nil input", role)
		}
	}
}

func randomDataset(rng *rand.Rand, n int) *dataset.Dataset {
	regions := []string{"North", "South", "East", "West"}
	recs := make([]dataset.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, dataset.Record{
			Name:   string(rune('A'+i%26)) + "-" + regions[rng.Intn(len(regions))],
			Grade:  6 + rng.Intn(6),
			Region: regions[rng.Intn(len(regions))],
			Fields: map[string]string{"id": string(rune('0' + i%10))},
		})
	}
	return dataset.New([]string{"id", "name", "grade", "region"}, recs)
}

func isOrderedSubset(sub, full []dataset.Record) bool {
	j := 0
	for _, r := range sub {
		for j < len(full) && !reflect.DeepEqual(full[j], r) {
			j++
		}
		if j == len(full) {
			return false
		}
		j++
	}
	return true
}

func TestFilterProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		ds := randomDataset(rng, rng.Intn(40))
		before := ds.Records()

		for _, role := range Roles() {
			out := Filter(ds, role)
			scope := ScopeFor(role)
			for _, r := range out.Records() {
				if !scope(r) {
					t.Fatalf("%s: record %+v does not satisfy scope", role, r)
				}
			}
			if !isOrderedSubset(out.Records(), before) {
				t.Fatalf("%s: output is not an ordered subset of input", role)
			}
			want := 0
			for _, r := range before {
				if scope(r) {
					want++
				}
			}
			if out.Len() != want {
				t.Fatalf("%s: expected %d rows, got %d", role, want, out.Len())
			}
		}

		if !reflect.DeepEqual(Filter(ds, RoleSuperAdmin).Records(), before) {
			t.Fatalf("super admin must see the full input")
		}
		if !Filter(ds, Role("Guest")).Empty() {
			t.Fatalf("unknown role must see nothing")
		}
		if !reflect.DeepEqual(ds.Records(), before) {
			t.Fatalf("filter mutated its input")
		}
	}
}

func TestFilterDoesNotAlias(t *testing.T) {
	ds := dataset.New([]string{"name", "grade", "region", "note"}, []dataset.Record{
		{Name: "Asha", Grade: 8, Region: "North", Fields: map[string]string{"note": "a"}},
	})
	out := Filter(ds, RoleSuperAdmin)
	recs := out.Records()
	recs[0].Fields["note"] = "changed"
	recs[0].Name = "changed"
	if ds.Records()[0].Value("note") != "a" || ds.Records()[0].Name != "Asha" {
		t.Errorf("filter output aliases its input")
	}
}

func TestRoles(t *testing.T) {
	want := []Role{RoleGrade8, RoleRegionNorth, RoleRegionSouth, RoleSuperAdmin}
	if got := Roles(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected role order %v", got)
	}
	if Roles()[0] != DefaultRole {
		t.Errorf("default role must be the first entry")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("Super Admin (Platform-Wide)"); !ok || r != RoleSuperAdmin {
		t.Errorf("expected super admin, got %q %v", r, ok)
	}
	if _, ok := ParseRole("super admin"); ok {
		t.Errorf("matching must be exact")
	}
}

func TestDescribe(t *testing.T) {
	if Describe(RoleRegionSouth) != "students in grade 9" {
		t.Errorf("unexpected description %q", Describe(RoleRegionSouth))
	}
	if Describe(Role("x")) != "no records" {
		t.Errorf("unexpected description for unknown role")
	}
}
