package verifier

import "testing"

func TestRatio_IdenticalStrings(t *testing.T) {
	if got := ratio("doom metal", "doom metal"); got != 100 {
		t.Errorf("ratio identical = %d, want 100", got)
	}
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	a := tokenSortRatio("ashen gate first light", "first light ashen gate")
	if a != 100 {
		t.Errorf("tokenSortRatio reordered = %d, want 100", a)
	}
}

func TestPartialRatio_MatchesSubstring(t *testing.T) {
	score := partialRatio("first light", "ashen gate - first light (full album)")
	if score < 90 {
		t.Errorf("partialRatio substring = %d, want >= 90", score)
	}
}

func TestScore_BoostsWhenBothBandAndAlbumStrong(t *testing.T) {
	score, boosted := Score("Ashen Gate First Light", "Ashen Gate - First Light (Full Album)", "First Light", "Ashen Gate")
	if !boosted {
		t.Error("expected full-album boost to apply")
	}
	if score < 80 {
		t.Errorf("score = %d, want >= 80", score)
	}
}

func TestScore_NoBandBoostWhenBandScoreWeak(t *testing.T) {
	score, _ := Score("Ashen Gate First Light", "Some Totally Unrelated Video Title", "First Light", "Ashen Gate")
	if score > 50 {
		t.Errorf("score = %d, want a low score for an unrelated title", score)
	}
}

func TestScore_CapsAt100(t *testing.T) {
	score, _ := Score("Ashen Gate First Light", "Ashen Gate First Light Full Album", "First Light", "Ashen Gate")
	if score > 100 {
		t.Errorf("score = %d, must not exceed 100", score)
	}
}
