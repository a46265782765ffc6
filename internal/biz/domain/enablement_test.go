package domain

import "testing"

func TestEnablementSet_Enabled(t *testing.T) {
	set := NewEnablementSet([]int64{1001, 1002})

	if !set.Enabled(1001) {
		t.Error("Expected group 1001 to be enabled")
	}
	if set.Enabled(2001) {
		t.Error("Expected group 2001 to be disabled")
	}
}

func TestEnablementSet_Empty(t *testing.T) {
	set := NewEnablementSet(nil)

	if set.Enabled(1001) {
		t.Error("Expected empty set to disable every group")
	}
}
