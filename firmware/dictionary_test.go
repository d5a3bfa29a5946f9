package firmware

import "testing"

func TestDictionaryRoundTrip(t *testing.T) {
	config := fullConfig()
	m, err := BuildMap(config)
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := BuildDictionary(config, m).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	d, err := DecodeDictionary(encoded)
	if err != nil {
		t.Fatalf("DecodeDictionary: %v", err)
	}

	if d.BoardName != config.BoardName {
		t.Errorf("BoardName = %q, want %q", d.BoardName, config.BoardName)
	}
	if d.Counts.Encoders != len(config.Encoders) || d.Counts.Stepgens != len(config.Stepgen) {
		t.Errorf("counts = %+v", d.Counts)
	}
	if len(d.Registers) != m.Len() {
		t.Fatalf("dictionary lists %d registers, map has %d", len(d.Registers), m.Len())
	}

	// Spot-check one register of each direction.
	for _, r := range d.Registers {
		switch r.Name {
		case "watchdog_data":
			if !r.Write || r.Addr != 0 {
				t.Errorf("watchdog_data = %+v", r)
			}
		case "wall_clock":
			if r.Write || r.Words != 2 {
				t.Errorf("wall_clock = %+v", r)
			}
		}
	}
}

func TestDecodeDictionaryRejectsGarbage(t *testing.T) {
	if _, err := DecodeDictionary([]byte("not zlib at all")); err == nil {
		t.Fatal("garbage accepted as dictionary")
	}
}
