package ag

import "testing"

func TestResultCodeValid(t *testing.T) {
	for r := ResultCode(0); r < 40; r++ {
		want := r <= ResultBIND || r == ResultIndOnDemand
		if r.Valid() != want {
			t.Errorf("%s: Valid() = %v, want %v", r, r.Valid(), want)
		}
	}
}
