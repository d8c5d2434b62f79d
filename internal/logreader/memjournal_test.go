package logreader

import (
	"context"
	"testing"
	"time"
)

func seedJournal() *MemJournal {
	m := NewMemJournal()
	for _, e := range []map[string]string{
		{"_COMM": "sshd", "MESSAGE": "s1"},
		{"_COMM": "sudo", "MESSAGE": "u1"},
		{"_COMM": "sshd", "MESSAGE": "s2"},
		{"_COMM": "sshd-session", "MESSAGE": "s3"},
		{"_COMM": "cron", "MESSAGE": "c1"},
	} {
		m.Append(e)
	}
	return m
}

func collect(t *testing.T, j Journal, step func() (bool, error)) []string {
	t.Helper()
	var out []string
	for {
		ok, err := step()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return out
		}
		e, err := j.Entry()
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, e["MESSAGE"])
	}
}

func TestMemJournalMatchesAndSeek(t *testing.T) {
	m := seedJournal()
	j, _ := m.Opener()()
	defer j.Close()

	if err := ApplyMatches(j, []Match{{"_COMM", "sshd"}, {"_COMM", "sshd-session"}}); err != nil {
		t.Fatal(err)
	}
	if err := j.SeekHead(); err != nil {
		t.Fatal(err)
	}
	got := collect(t, j, j.Next)
	if len(got) != 3 || got[0] != "s1" || got[2] != "s3" {
		t.Fatalf("forward = %v", got)
	}

	// remember the cursor of s2
	if err := j.SeekHead(); err != nil {
		t.Fatal(err)
	}
	j.Next()
	j.Next()
	c, err := j.Cursor()
	if err != nil {
		t.Fatal(err)
	}

	if err := j.SeekCursor(c); err != nil {
		t.Fatal(err)
	}
	if got := collect(t, j, j.Next); len(got) != 2 || got[0] != "s2" {
		t.Errorf("Next after SeekCursor = %v, want to land on s2 first", got)
	}

	if err := j.SeekCursor(c); err != nil {
		t.Fatal(err)
	}
	if got := collect(t, j, j.Previous); len(got) != 2 || got[0] != "s2" || got[1] != "s1" {
		t.Errorf("Previous after SeekCursor = %v", got)
	}
}

func TestMemJournalRejectsForeignCursor(t *testing.T) {
	j, _ := seedJournal().Opener()()
	if err := j.SeekCursor("s=other;i=1"); err == nil {
		t.Error("expected error for foreign cursor")
	}
}

func TestMemJournalWaitWakesOnAppend(t *testing.T) {
	m := NewMemJournal()
	j, _ := m.Opener()()
	j.SeekTail()

	done := make(chan struct{})
	go func() {
		j.Wait(context.Background(), 5*time.Second)
		close(done)
	}()
	woke := false
	for i := 0; i < 40 && !woke; i++ {
		m.Append(map[string]string{"MESSAGE": "new"})
		select {
		case <-done:
			woke = true
		case <-time.After(50 * time.Millisecond):
		}
	}
	if !woke {
		t.Fatal("Wait did not wake on append")
	}
	ok, err := j.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
}

func TestMemJournalSeekRealtime(t *testing.T) {
	m := NewMemJournal()
	m.Append(map[string]string{"MESSAGE": "old", "__REALTIME_TIMESTAMP": "1000"})
	m.Append(map[string]string{"MESSAGE": "new", "__REALTIME_TIMESTAMP": "3000"})
	j, _ := m.Opener()()
	j.SeekRealtime(time.UnixMicro(2000))
	if got := collect(t, j, j.Next); len(got) != 1 || got[0] != "new" {
		t.Errorf("after SeekRealtime got %v", got)
	}
}
