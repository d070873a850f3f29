// Package scanner walks library roots and groups files into per-directory
// batches ready for signature computation. It never consults the state
// store or a provider — it only discovers what's on disk.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/signature"
)

// DefaultExtensions are the audio file extensions considered in scope.
var DefaultExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".m4a": true, ".ogg": true, ".opus": true, ".wav": true,
}

// Batch is one directory's discovered files plus its computed identity.
type Batch struct {
	Directory     string
	AudioFiles    []string
	NonAudioFiles []string
	Signature     signature.DirectorySignature
	DirID         string
}

// Scanner walks one or more library roots.
type Scanner struct {
	extensions      map[string]bool
	excludePatterns []string
	extractor       evidence.Extractor
}

type Option func(*Scanner)

func WithExtensions(exts map[string]bool) Option {
	return func(s *Scanner) { s.extensions = exts }
}

func WithExcludePatterns(patterns []string) Option {
	return func(s *Scanner) { s.excludePatterns = patterns }
}

// WithFingerprinter supplies the real audio fingerprinter to fall back on
// when a file's sidecar has no fingerprint_id/duration_seconds yet. Without
// this option the scanner is sidecar-only.
func WithFingerprinter(fp evidence.FingerprintReader) Option {
	return func(s *Scanner) { s.extractor = evidence.NewExtractor(fp) }
}

func New(opts ...Option) *Scanner {
	s := &Scanner{extensions: DefaultExtensions}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scanner) shouldInclude(path string) bool {
	for _, pattern := range s.excludePatterns {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return false
		}
	}
	return true
}

func (s *Scanner) isAudio(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// IterDirectories walks every root, yielding one Batch per directory that
// contains at least one in-scope audio file. Directory and file entries are
// sorted before being walked so two scans of an unchanged tree always
// produce identical batches and signatures.
func (s *Scanner) IterDirectories(roots []string) ([]Batch, error) {
	var batches []Batch
	for _, root := range roots {
		found, err := s.walkRoot(root)
		if err != nil {
			return nil, err
		}
		batches = append(batches, found...)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Directory < batches[j].Directory })
	return batches, nil
}

func (s *Scanner) walkRoot(root string) ([]Batch, error) {
	var batches []Batch
	byDir := map[string]*Batch{}
	var order []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !s.shouldInclude(path) {
			return nil
		}
		dir := filepath.Dir(path)
		b, ok := byDir[dir]
		if !ok {
			b = &Batch{Directory: dir}
			byDir[dir] = b
			order = append(order, dir)
		}
		if s.isAudio(path) {
			b.AudioFiles = append(b.AudioFiles, path)
		} else {
			b.NonAudioFiles = append(b.NonAudioFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(order)
	for _, dir := range order {
		b := byDir[dir]
		if len(b.AudioFiles) == 0 {
			continue
		}
		sort.Strings(b.AudioFiles)
		sort.Strings(b.NonAudioFiles)

		fileSigs := make([]signature.AudioFileSignature, 0, len(b.AudioFiles))
		for _, p := range b.AudioFiles {
			te, err := s.extractor.ExtractTrackEvidence(p)
			if err != nil {
				return nil, err
			}
			size := int64(0)
			if info, statErr := os.Stat(p); statErr == nil {
				size = info.Size()
			}
			fileSigs = append(fileSigs, signature.AudioFileSignature{
				Path:            p,
				FingerprintID:   te.FingerprintID,
				DurationSeconds: te.DurationSeconds,
				SizeBytes:       size,
			})
		}

		sig := signature.DirSignature(fileSigs, b.NonAudioFiles)
		b.Signature = sig
		b.DirID = signature.DirID(sig)
		batches = append(batches, *b)
	}
	return batches, nil
}

// CollectDirectory computes a single Batch for one directory's already-known
// file lists, without walking the filesystem — useful when a caller has
// already enumerated files some other way.
func (s *Scanner) CollectDirectory(directory string, audioFiles, nonAudioFiles []string) (Batch, error) {
	sortedAudio := append([]string(nil), audioFiles...)
	sortedNonAudio := append([]string(nil), nonAudioFiles...)
	sort.Strings(sortedAudio)
	sort.Strings(sortedNonAudio)

	fileSigs := make([]signature.AudioFileSignature, 0, len(sortedAudio))
	for _, p := range sortedAudio {
		te, err := s.extractor.ExtractTrackEvidence(p)
		if err != nil {
			return Batch{}, err
		}
		size := int64(0)
		if info, statErr := os.Stat(p); statErr == nil {
			size = info.Size()
		}
		fileSigs = append(fileSigs, signature.AudioFileSignature{
			Path:            p,
			FingerprintID:   te.FingerprintID,
			DurationSeconds: te.DurationSeconds,
			SizeBytes:       size,
		})
	}

	sig := signature.DirSignature(fileSigs, sortedNonAudio)
	return Batch{
		Directory:     directory,
		AudioFiles:    sortedAudio,
		NonAudioFiles: sortedNonAudio,
		Signature:     sig,
		DirID:         signature.DirID(sig),
	}, nil
}
