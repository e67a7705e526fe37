package wordcount

import "testing"

func TestCountSubstringSafety(t *testing.T) {
	src := "const user = 1;\nconsole.log(username);"
	if got := Count(src, "user"); got != 1 {
		t.Fatalf("Count(user) = %d, want 1", got)
	}
}

func TestCountMultipleOccurrences(t *testing.T) {
	src := "func helper() {}\nfunc main() { helper(); helper() }"
	if got := Count(src, "helper"); got != 3 {
		t.Fatalf("Count(helper) = %d, want 3", got)
	}
}

func TestCountEmptyWord(t *testing.T) {
	if got := Count("anything", ""); got != 0 {
		t.Fatalf("Count(\"\") = %d, want 0", got)
	}
}
