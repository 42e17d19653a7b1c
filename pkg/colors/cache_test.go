package colors

import (
	"fmt"
	"testing"
)

func TestColorIDStablePerTitle(t *testing.T) {
	p := NewPalette(nil)

	first := p.ColorID("Restmüll")
	second := p.ColorID("Bioabfall")

	if first != "1" || second != "2" {
		t.Errorf("Expected colors 1 and 2, got %s and %s", first, second)
	}
	if again := p.ColorID("Restmüll"); again != first {
		t.Errorf("Expected Restmüll to keep color %s, got %s", first, again)
	}
}

func TestColorIDOverrides(t *testing.T) {
	p := NewPalette(map[string]string{"Altpapier": "9"})

	if id := p.ColorID("Altpapier"); id != "9" {
		t.Errorf("Expected override 9, got %s", id)
	}
	if id := p.ColorID("Restmüll"); id != "1" {
		t.Errorf("Expected first assigned color 1, got %s", id)
	}
}

func TestColorIDRecycles(t *testing.T) {
	p := NewPalette(nil)
	for i := 0; i < paletteSize; i++ {
		p.ColorID(fmt.Sprintf("title-%d", i))
	}

	if id := p.ColorID("one more"); id != "1" {
		t.Errorf("Expected recycled color 1, got %s", id)
	}
	if id := p.ColorID(""); id != "" {
		t.Errorf("Expected empty color for empty title, got %s", id)
	}
}

func TestValid(t *testing.T) {
	for _, id := range []string{"1", "5", "11"} {
		if !Valid(id) {
			t.Errorf("Expected %s to be valid", id)
		}
	}
	for _, id := range []string{"", "0", "12", "red"} {
		if Valid(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}
