package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Fatalf("Clamp(5,0,10) = %d", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Fatalf("Clamp(-3,0,10) = %d", got)
	}
	if got := Clamp(99, 0, 10); got != 10 {
		t.Fatalf("Clamp(99,0,10) = %d", got)
	}
	// Swapped bounds are tolerated.
	if got := Clamp(99, 10, 0); got != 10 {
		t.Fatalf("Clamp(99,10,0) = %d", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(200, 200, 3_600_000) {
		t.Fatal("lower bound should be inclusive")
	}
	if Between(199, 200, 3_600_000) {
		t.Fatal("below range")
	}
}

func TestMinMax(t *testing.T) {
	if Min(2, 7) != 2 || Max(2, 7) != 7 {
		t.Fatal("Min/Max disagree")
	}
}
