package frontier

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"shopfinder/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func item(target, tag string, page int) *models.FrontierItem {
	return &models.FrontierItem{Target: target, SourceTag: tag, PageIndex: page, BornAt: time.Now()}
}

func TestFIFOWithinTag(t *testing.T) {
	f := New(0, 0, testLogger())
	for i := 0; i < 5; i++ {
		if !f.Add(item(fmt.Sprintf("https://x.test/p%d", i), "search/shoes", i)) {
			t.Fatalf("add %d rejected", i)
		}
	}
	for i := 0; i < 5; i++ {
		got, ok := f.Pop()
		if !ok {
			t.Fatal("unexpected close")
		}
		want := fmt.Sprintf("https://x.test/p%d", i)
		if got.Target != want {
			t.Errorf("pop %d: got %s, want %s", i, got.Target, want)
		}
	}
}

func TestRoundRobinAcrossTags(t *testing.T) {
	f := New(0, 0, testLogger())
	// Two items per tag, three tags.
	for _, tag := range []string{"search/a", "search/b", "search/c"} {
		f.Add(item("https://x.test/"+tag+"/0", tag, 0))
		f.Add(item("https://x.test/"+tag+"/1", tag, 1))
	}

	var order []string
	for i := 0; i < 6; i++ {
		got, ok := f.Pop()
		if !ok {
			t.Fatal("unexpected close")
		}
		order = append(order, got.SourceTag)
	}
	want := []string{"search/a", "search/b", "search/c", "search/a", "search/b", "search/c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("dispatch order %v, want %v", order, want)
		}
	}
}

func TestDuplicateVisitKeyRejected(t *testing.T) {
	f := New(0, 0, testLogger())
	if !f.Add(item("https://x.test/p", "search/a", 0)) {
		t.Fatal("first add rejected")
	}
	if f.Add(item("https://x.test/p", "search/a", 0)) {
		t.Error("duplicate (target, tag) must be rejected")
	}
	// Same target under a different tag is distinct work.
	if !f.Add(item("https://x.test/p", "search/b", 0)) {
		t.Error("same target under another tag must be accepted")
	}
	if f.Len() != 2 {
		t.Errorf("expected 2 pending, got %d", f.Len())
	}
}

func TestEmptyStreakRetiresTag(t *testing.T) {
	f := New(0, 2, testLogger())
	f.Add(item("https://x.test/0", "search/a", 0))
	f.Add(item("https://x.test/1", "search/a", 1))
	f.Add(item("https://x.test/2", "search/a", 2))

	if d := f.RecordPageResult("search/a", 0); d != 0 {
		t.Errorf("first empty page must not discard, got %d", d)
	}
	if f.Stopped("search/a") {
		t.Fatal("tag retired too early")
	}
	if d := f.RecordPageResult("search/a", 0); d != 3 {
		t.Errorf("expected 3 queued items discarded, got %d", d)
	}
	if !f.Stopped("search/a") {
		t.Error("tag should be retired after threshold")
	}
	if f.Add(item("https://x.test/3", "search/a", 3)) {
		t.Error("retired tag must refuse new items")
	}

	// A productive page resets the streak for other tags.
	f.Add(item("https://x.test/b0", "search/b", 0))
	f.RecordPageResult("search/b", 0)
	f.RecordPageResult("search/b", 5)
	f.RecordPageResult("search/b", 0)
	if f.Stopped("search/b") {
		t.Error("streak must reset on a productive page")
	}
}

func TestCapacityDrop(t *testing.T) {
	f := New(2, 0, testLogger())
	f.Add(item("https://x.test/0", "search/a", 0))
	f.Add(item("https://x.test/1", "search/a", 1))
	if f.Add(item("https://x.test/2", "search/a", 2)) {
		t.Error("expected overflow item to be dropped")
	}
	if f.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", f.Dropped())
	}
}

func TestCloseWakesPop(t *testing.T) {
	f := New(0, 0, testLogger())
	done := make(chan bool)
	go func() {
		_, ok := f.Pop()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	f.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop on closed empty frontier must report !ok")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Close")
	}
}

func TestDrainAfterClose(t *testing.T) {
	f := New(0, 0, testLogger())
	f.Add(item("https://x.test/0", "search/a", 0))
	f.Close()

	if _, ok := f.Pop(); !ok {
		t.Fatal("queued item must still drain after Close")
	}
	if _, ok := f.Pop(); ok {
		t.Fatal("drained frontier must report closed")
	}
	if f.Add(item("https://x.test/1", "search/a", 1)) {
		t.Error("closed frontier must refuse items")
	}
}
