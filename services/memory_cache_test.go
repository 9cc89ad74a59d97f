package services

import (
	"fmt"
	"testing"

	"tax-document-platform/models"
)

func TestMemoryCacheBound(t *testing.T) {
	cache := NewMemoryCache(3)
	for i := 0; i < 10; i++ {
		cache.Add(models.Document{ID: fmt.Sprintf("doc-%d", i), ExtractedText: "inhalt"})
	}

	if cache.Len() != 3 {
		t.Fatalf("expected capacity bound of 3, got %d", cache.Len())
	}

	// Oldest entries were evicted, newest survive.
	if got := cache.Find("inhalt", 10); len(got) != 3 {
		t.Fatalf("expected 3 live entries, got %d", len(got))
	} else if got[0].ID != "doc-7" || got[2].ID != "doc-9" {
		t.Fatalf("unexpected survivors: %v, %v", got[0].ID, got[2].ID)
	}
}

func TestMemoryCacheReplacesSameID(t *testing.T) {
	cache := NewMemoryCache(10)
	cache.Add(models.Document{ID: "doc-1", ExtractedText: "alt"})
	cache.Add(models.Document{ID: "doc-1", ExtractedText: "neu"})

	if cache.Len() != 1 {
		t.Fatalf("expected replacement, got %d entries", cache.Len())
	}
	if got := cache.Find("neu", 10); len(got) != 1 {
		t.Fatalf("expected updated text to be findable")
	}
	if got := cache.Find("alt", 10); len(got) != 0 {
		t.Fatalf("expected old text to be gone")
	}
}

func TestMemoryCacheSoftDelete(t *testing.T) {
	cache := NewMemoryCache(10)
	cache.Add(models.Document{ID: "doc-1", OriginalName: "rechnung.pdf"})
	cache.Remove("doc-1")

	if cache.Len() != 0 {
		t.Fatalf("expected zero live entries after removal")
	}
	if got := cache.Find("rechnung", 10); len(got) != 0 {
		t.Fatalf("removed entry still findable")
	}
}

func TestMemoryCacheFindCaseInsensitive(t *testing.T) {
	cache := NewMemoryCache(10)
	cache.Add(models.Document{ID: "doc-1", OriginalName: "Steuerbescheid_2024.PDF", ExtractedText: "Finanzamt München"})

	if got := cache.Find("steuerbescheid", 10); len(got) != 1 {
		t.Fatalf("filename match failed")
	}
	if got := cache.Find("finanzamt", 10); len(got) != 1 {
		t.Fatalf("text match failed")
	}
	if got := cache.Find("gehalt", 10); len(got) != 0 {
		t.Fatalf("unexpected match")
	}
}

func TestMemoryCacheFindLimit(t *testing.T) {
	cache := NewMemoryCache(10)
	for i := 0; i < 5; i++ {
		cache.Add(models.Document{ID: fmt.Sprintf("doc-%d", i), ExtractedText: "rechnung"})
	}
	if got := cache.Find("rechnung", 2); len(got) != 2 {
		t.Fatalf("expected limit to cap results, got %d", len(got))
	}
}
