package indexstore

// PostingIndex maps a token to the documents holding it and, per document,
// the zero-based word positions of each occurrence in one field.
type PostingIndex map[string]map[string][]int

// FeatureIndex maps a normalised feature value to the set of document URLs
// carrying it.
type FeatureIndex map[string]map[string]struct{}

// Synonyms maps a canonical term to its alternate surface forms.
type Synonyms map[string][]string

// ReviewStats aggregates the reviews of one document.
type ReviewStats struct {
	TotalReviews int     `json:"total_reviews"`
	MeanMark     float64 `json:"mean_mark"`
	LastRating   *int    `json:"last_rating,omitempty"`
}

// Review is a single customer review as crawled.
type Review struct {
	Date   string `json:"date,omitempty"`
	Rating int    `json:"rating"`
	Text   string `json:"text,omitempty"`
}

// Document is one catalog record. Length is derived at load time.
type Document struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Features    map[string]string `json:"product_features,omitempty"`
	Reviews     []Review          `json:"product_reviews,omitempty"`
	Length      int               `json:"-"`
}

// Data is the raw material a Store is built from. Title, Description,
// Reviews, Documents and the brand and origin feature indexes are required.
type Data struct {
	Title       PostingIndex
	Description PostingIndex
	Features    map[string]FeatureIndex
	Reviews     map[string]ReviewStats
	Synonyms    Synonyms
	Documents   []Document
}

// Stats summarises a loaded Store.
type Stats struct {
	Documents        int            `json:"documents"`
	TitleTerms       int            `json:"title_terms"`
	DescriptionTerms int            `json:"description_terms"`
	FeatureValues    map[string]int `json:"feature_values"`
	SynonymKeys      int            `json:"synonym_keys"`
	AvgDocLength     float64        `json:"avg_doc_length"`
}

const (
	FeatureBrand  = "brand"
	FeatureOrigin = "origin"
)

// NewFeatureIndex builds a FeatureIndex from the on-disk value → URLs form.
func NewFeatureIndex(raw map[string][]string) FeatureIndex {
	idx := make(FeatureIndex, len(raw))
	for value, urls := range raw {
		set := make(map[string]struct{}, len(urls))
		for _, url := range urls {
			set[url] = struct{}{}
		}
		idx[value] = set
	}
	return idx
}
