package gpio

import "testing"

func TestMockDriver_ZeroValueUsable(t *testing.T) {
	var m MockDriver
	if err := m.WritePin(17, High); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	lvl, err := m.ReadPin(17)
	if err != nil {
		t.Fatalf("ReadPin: %v", err)
	}
	if lvl != High {
		t.Errorf("ReadPin(17) = %v, want High", lvl)
	}
}

func TestMockDriver_SetupButtonPullsUp(t *testing.T) {
	m := &MockDriver{}
	if err := m.SetupButton(14); err != nil {
		t.Fatalf("SetupButton: %v", err)
	}
	mode, ok := m.Mode(14)
	if !ok || mode != Input {
		t.Errorf("Mode(14) = %v, %v; want Input, true", mode, ok)
	}
	if lvl, _ := m.ReadPin(14); lvl != High {
		t.Errorf("idle button should read High (pull-up), got %v", lvl)
	}
}

func TestMockDriver_EdgeConsumedOnce(t *testing.T) {
	m := &MockDriver{}
	_ = m.SetupButton(23)

	if edge, _ := m.EdgeDetected(23); edge {
		t.Fatal("no edge expected before TriggerEdge")
	}
	m.TriggerEdge(23)
	if edge, _ := m.EdgeDetected(23); !edge {
		t.Fatal("edge expected after TriggerEdge")
	}
	if edge, _ := m.EdgeDetected(23); edge {
		t.Error("edge should be cleared after being read")
	}
}

func TestMockDriver_RecordsWrites(t *testing.T) {
	m := &MockDriver{}
	_ = m.WritePin(2, High)
	_ = m.WritePin(2, Low)
	_ = m.WritePin(3, High)

	got := m.Writes(2)
	if len(got) != 2 || got[0] != High || got[1] != Low {
		t.Errorf("Writes(2) = %v, want [High Low]", got)
	}
	if len(m.Writes(99)) != 0 {
		t.Error("Writes on untouched pin should be empty")
	}
}

func TestMockDriver_Close(t *testing.T) {
	m := &MockDriver{}
	if m.Closed() {
		t.Fatal("new driver reports closed")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) returned %T, want *MockDriver", d)
	}
}
