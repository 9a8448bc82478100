package change

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"level", []string{"level"}},
		{"combat.hit_points.maximum", []string{"combat", "hit_points", "maximum"}},
		{"inventory[id=dagger-1].quantity", []string{"inventory[id=dagger-1]", "quantity"}},
		{"spells[3].name", []string{"spells[3]", "name"}},
		// Dots inside a selector do not split.
		{"inventory[id=bag.of.holding].weight", []string{"inventory[id=bag.of.holding]", "weight"}},
	}
	for _, tt := range tests {
		if got := SplitPath(tt.path); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitPath(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestJoinPath_Roundtrip(t *testing.T) {
	paths := []string{
		"level",
		"combat.hit_points.maximum",
		"inventory[id=dagger-1].quantity",
	}
	for _, p := range paths {
		if got := JoinPath(SplitPath(p)); got != p {
			t.Errorf("roundtrip %q: got %q", p, got)
		}
	}
}

func TestChild(t *testing.T) {
	if got := Child("", "level"); got != "level" {
		t.Errorf("root child: got %q", got)
	}
	if got := Child("combat", "armor_class"); got != "combat.armor_class" {
		t.Errorf("nested child: got %q", got)
	}
}

func TestSelectors(t *testing.T) {
	if got := Indexed("spells", 3); got != "spells[3]" {
		t.Errorf("Indexed: got %q", got)
	}
	if got := Keyed("inventory", "id", "dagger-1"); got != "inventory[id=dagger-1]" {
		t.Errorf("Keyed: got %q", got)
	}
}
