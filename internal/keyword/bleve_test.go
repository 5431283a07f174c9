package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/wantokmatch/internal/models"
)

func newMemIndex(t *testing.T, jobs ...*models.Job) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	for _, j := range jobs {
		if err := idx.IndexJob(context.Background(), j); err != nil {
			t.Fatalf("IndexJob(%d): %v", j.ID, err)
		}
	}
	return idx
}

func activeJob(id int64, title, desc string) *models.Job {
	return &models.Job{ID: id, Title: title, Description: desc, Status: "active"}
}

func TestBleveIndex_SearchStemsAndRanksTitle(t *testing.T) {
	idx := newMemIndex(t,
		activeJob(1, "Accounts Clerk", "Support the mine site finance team"),
		activeJob(2, "Mine Engineer", "Open pit operations at Ok Tedi"),
		activeJob(3, "Chef", "Hotel kitchen in Lae"),
	)

	results, err := idx.Search(context.Background(), "mining", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].JobID != 2 {
		t.Errorf("title match should rank first, got job %d", results[0].JobID)
	}
}

func TestBleveIndex_SearchAnyTermWithCoverage(t *testing.T) {
	idx := newMemIndex(t,
		activeJob(1, "Truck Driver", "Haul ore from the mine"),
		activeJob(2, "Driver", "Drive staff around Port Moresby"),
	)

	results, err := idx.Search(context.Background(), "painim wok long mining driver", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].JobID != 1 {
		t.Errorf("job matching more terms should rank first, got %d", results[0].JobID)
	}
}

func TestBleveIndex_SanitizesQuerySyntax(t *testing.T) {
	idx := newMemIndex(t, activeJob(1, "Security Guard", "Night shift"))

	results, err := idx.Search(context.Background(), `+security -"guard" title:(x)`, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}

	empty, err := idx.Search(context.Background(), "!!!", 10, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("punctuation-only query = %v, %v", empty, err)
	}
}

func TestBleveIndex_FuzzyFallback(t *testing.T) {
	idx := newMemIndex(t, activeJob(1, "Carpenter", "Build houses"))
	ctx := context.Background()

	exact, err := idx.Search(ctx, "carpentr", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(exact) != 0 {
		t.Fatalf("exact search should miss a typo, got %d", len(exact))
	}

	fuzzy, err := idx.Search(ctx, "carpentr", 10, &SearchOptions{FuzzyFallback: true, Fuzziness: 2})
	if err != nil {
		t.Fatalf("Search fuzzy: %v", err)
	}
	if len(fuzzy) != 1 || fuzzy[0].JobID != 1 {
		t.Errorf("fuzzy retry should find the carpenter job, got %+v", fuzzy)
	}
}

func TestBleveIndex_InactiveJobRemoved(t *testing.T) {
	job := activeJob(7, "Nurse", "Ward duties")
	idx := newMemIndex(t, job)
	ctx := context.Background()

	job.Status = "closed"
	if err := idx.IndexJob(ctx, job); err != nil {
		t.Fatalf("IndexJob closed: %v", err)
	}
	n, err := idx.DocCount()
	if err != nil || n != 0 {
		t.Errorf("DocCount = %d, %v; want 0", n, err)
	}
	if err := idx.Delete(ctx, 404); err != nil {
		t.Errorf("Delete absent job: %v", err)
	}
}

func TestBleveIndex_Limit(t *testing.T) {
	idx := newMemIndex(t,
		activeJob(1, "Cook", "Kitchen"),
		activeJob(2, "Cook", "Kitchen"),
		activeJob(3, "Cook", "Kitchen"),
	)
	results, err := idx.Search(context.Background(), "cook", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].JobID != 1 || results[1].JobID != 2 {
		t.Errorf("equal scores should order by job id, got %+v", results)
	}
}

func TestNewBleveIndex_ReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.bleve")

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index dir not created: %v", err)
	}
	if err := idx.IndexJob(context.Background(), activeJob(3, "Teacher", "Primary school")); err != nil {
		t.Fatalf("IndexJob: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.DocCount()
	if err != nil || n != 1 {
		t.Errorf("DocCount after reopen = %d, %v", n, err)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("wok-ain? (mining)"); got != "wok ain   mining" {
		t.Errorf("Sanitize = %q", got)
	}
}

func TestBleveIndex_JobIDs(t *testing.T) {
	empty := newMemIndex(t)
	ids, err := empty.JobIDs(context.Background())
	if err != nil {
		t.Fatalf("JobIDs on empty index: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("empty index ids = %v", ids)
	}

	idx := newMemIndex(t,
		activeJob(12, "Cook", "Camp kitchen"),
		activeJob(3, "Driver", "Haul ore"),
		activeJob(7, "Guard", "Night shift"),
	)
	if err := idx.Delete(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	ids, err = idx.JobIDs(context.Background())
	if err != nil {
		t.Fatalf("JobIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 12 {
		t.Errorf("ids = %v, want [3 12]", ids)
	}
}
