package safety

import "testing"

func TestZoneContains(t *testing.T) {
	tests := []struct {
		name  string
		zone  Zone
		angle float64
		want  bool
	}{
		// Plain zone, no wrap.
		{"inside plain zone", Zone{MinAngle: 45, MaxAngle: 135}, 90, true},
		{"below plain zone", Zone{MinAngle: 45, MaxAngle: 135}, 44, false},
		{"above plain zone", Zone{MinAngle: 45, MaxAngle: 135}, 136, false},
		{"plain zone min boundary", Zone{MinAngle: 45, MaxAngle: 135}, 45, true},
		{"plain zone max boundary", Zone{MinAngle: 45, MaxAngle: 135}, 135, true},

		// Wrap zone crossing 0°.
		{"wrap zone just below 360", Zone{MinAngle: 350, MaxAngle: 10}, 359, true},
		{"wrap zone just above 0", Zone{MinAngle: 350, MaxAngle: 10}, 1, true},
		{"wrap zone at 0", Zone{MinAngle: 350, MaxAngle: 10}, 0, true},
		{"wrap zone min boundary", Zone{MinAngle: 350, MaxAngle: 10}, 350, true},
		{"wrap zone max boundary", Zone{MinAngle: 350, MaxAngle: 10}, 10, true},
		{"wrap zone outside", Zone{MinAngle: 350, MaxAngle: 10}, 180, false},
		{"wrap zone just below min", Zone{MinAngle: 350, MaxAngle: 10}, 349, false},
		{"wrap zone just above max", Zone{MinAngle: 350, MaxAngle: 10}, 11, false},

		// The default front cone.
		{"front cone dead ahead", Zone{MinAngle: 315, MaxAngle: 45}, 0, true},
		{"front cone left edge", Zone{MinAngle: 315, MaxAngle: 45}, 45, true},
		{"front cone right edge", Zone{MinAngle: 315, MaxAngle: 45}, 315, true},
		{"front cone behind", Zone{MinAngle: 315, MaxAngle: 45}, 180, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.zone.Contains(tt.angle); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.angle, got, tt.want)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{359, 359},
		{360, 0},
		{361, 1},
		{720, 0},
		{-1, 359},
		{-45, 315},
		{-360, 0},
	}

	for _, tt := range tests {
		if got := normalizeAngle(tt.in); got != tt.want {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultZones(t *testing.T) {
	zones := defaultZones(0.5)
	if len(zones) != 3 {
		t.Fatalf("defaultZones() returned %d zones, want 3", len(zones))
	}

	byName := make(map[string]Zone, len(zones))
	for _, z := range zones {
		byName[z.Name] = z
	}

	front, ok := byName["critical_front"]
	if !ok {
		t.Fatal("critical_front zone missing")
	}
	if !front.Critical() {
		t.Error("critical_front should have stop action")
	}
	if front.MinDistance != 0.5 {
		t.Errorf("critical_front MinDistance = %v, want 0.5", front.MinDistance)
	}

	for _, name := range []string{"warning_left", "warning_right"} {
		z, ok := byName[name]
		if !ok {
			t.Fatalf("%s zone missing", name)
		}
		if z.Critical() {
			t.Errorf("%s should not have stop action", name)
		}
		if z.MinDistance != 0.5*warningDistanceFactor {
			t.Errorf("%s MinDistance = %v, want %v", name, z.MinDistance, 0.5*warningDistanceFactor)
		}
	}
}

func TestBuildZonesAppendsAndNormalizesCustom(t *testing.T) {
	custom := []Zone{
		{Name: "rear", MinAngle: -225, MaxAngle: 225, MinDistance: 0.3, Action: ActionSlow},
	}

	zones := buildZones(0.5, custom)
	if len(zones) != 4 {
		t.Fatalf("buildZones() returned %d zones, want 4", len(zones))
	}

	rear := zones[3]
	if rear.MinAngle != 135 {
		t.Errorf("custom MinAngle = %v, want 135 after normalization", rear.MinAngle)
	}
	if rear.MaxAngle != 225 {
		t.Errorf("custom MaxAngle = %v, want 225", rear.MaxAngle)
	}
}
