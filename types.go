package extractor

import "github.com/archsafe/extractor/entryiter"

// Report summarizes a completed (or partially completed, on streaming-mode
// failure) extraction. See spec §3, §8 property 4.
type Report struct {
	FilesExtracted uint64
	DirsCreated    uint64
	EntriesSkipped uint64
	BytesWritten   uint64
}

// VerifyReport summarizes a completed verification pass.
type VerifyReport struct {
	EntriesVerified uint64
	BytesVerified   uint64
}

// EntryInfo is the purely descriptive view Lister returns for one entry.
type EntryInfo struct {
	Name      string
	Size      int64
	Kind      entryiter.Kind
	IsFile    bool
	IsDir     bool
	IsSymlink bool
}

func entryInfoFrom(e entryiter.RawEntry) EntryInfo {
	return EntryInfo{
		Name:      e.Name,
		Size:      e.DeclaredSize,
		Kind:      e.Kind,
		IsFile:    e.Kind == entryiter.KindFile,
		IsDir:     e.Kind == entryiter.KindDirectory,
		IsSymlink: e.Kind == entryiter.KindSymlink,
	}
}
