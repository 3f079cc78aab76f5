package probe

import (
	"testing"

	"github.com/hamed0406/downdetector/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Outcome
	}{
		{"64 bytes from 1.1.1.1: icmp_seq=0 ttl=57 time=12.3 ms", domain.OutcomeSuccess},
		{"Reply from 8.8.8.8: bytes from icmp", domain.OutcomeSuccess},
		{"Request timeout for icmp_seq 4", domain.OutcomeDown},
		{"Request timeout ...", domain.OutcomeDown},
		{"PING 1.1.1.1 (1.1.1.1): 56 data bytes", domain.OutcomeUnknown},
		{"ping: sendto: No route to host", domain.OutcomeUnknown},
		{"  Request timeout for icmp_seq 4", domain.OutcomeUnknown}, // must be a prefix
		{"", domain.OutcomeUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.in); got != c.want {
			t.Fatalf("Classify(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestClassify_SuccessWinsOverTimeout(t *testing.T) {
	// a chunk can hold several lines; a reply anywhere counts as success
	msg := "Request timeout for icmp_seq 1\n64 bytes from 1.1.1.1: icmp_seq=2"
	if got := Classify(msg); got != domain.OutcomeSuccess {
		t.Fatalf("want success, got %q", got)
	}
}
