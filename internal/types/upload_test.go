package types

import "testing"

func TestAllowedFromStatuses(t *testing.T) {
	cases := []struct {
		to   string
		want []string
	}{
		{UploadStatusCompleted, []string{UploadStatusProcessing}},
		{UploadStatusFailed, []string{UploadStatusProcessing}},
		{UploadStatusMapped, []string{UploadStatusCompleted}},
		{UploadStatusProcessing, nil},
		{"garbage", nil},
	}
	for _, tc := range cases {
		got := AllowedFromStatuses(tc.to)
		if len(got) != len(tc.want) {
			t.Fatalf("AllowedFromStatuses(%q): want=%v got=%v", tc.to, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("AllowedFromStatuses(%q): want=%v got=%v", tc.to, tc.want, got)
			}
		}
	}
}

func TestIsValidUploadStatus(t *testing.T) {
	for _, s := range []string{UploadStatusProcessing, UploadStatusCompleted, UploadStatusFailed, UploadStatusMapped} {
		if !IsValidUploadStatus(s) {
			t.Fatalf("IsValidUploadStatus(%q): want=true", s)
		}
	}
	if IsValidUploadStatus("uploaded") {
		t.Fatalf("IsValidUploadStatus(%q): want=false", "uploaded")
	}
}
