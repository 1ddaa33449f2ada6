package mock

import "github.com/minute-repeater/restocked"

var _ restocked.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of restocked.Extractor.
type Extractor struct {
	ExtractFn func(html, url string) (*restocked.ExtractedProduct, error)
}

func (e *Extractor) Extract(html, url string) (*restocked.ExtractedProduct, error) {
	return e.ExtractFn(html, url)
}

var _ restocked.ExtractStrategy = (*ExtractStrategy)(nil)

// ExtractStrategy is a mock implementation of restocked.ExtractStrategy.
type ExtractStrategy struct {
	NameFn    func() string
	ExtractFn func(html, url string) (*restocked.ExtractedProduct, error)
}

func (s *ExtractStrategy) Name() string {
	if s.NameFn == nil {
		return "mock"
	}
	return s.NameFn()
}

func (s *ExtractStrategy) Extract(html, url string) (*restocked.ExtractedProduct, error) {
	return s.ExtractFn(html, url)
}
