package dedup

import "time"

// Posting is the normalized record the resolver and stores operate on.
// Text fields use "" for absent values.
type Posting struct {
	ID              int64
	UUID            string
	Title           string
	TitleHe         string
	Company         string
	CompanyVerified bool
	Location        string
	City            string
	Region          string
	Description     string
	DescriptionHe   string
	Language        string
	JobType         string
	ExperienceLevel string
	Salary          string
	SalaryMin       *int
	SalaryMax       *int
	Category        string
	Skills          []string
	URL             string
	SourceURL       string
	SourceSite      string
	PostedAt        *time.Time
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	IsActive        bool
	IsRemote        bool
	IsHybrid        bool
	DuplicateOfID   *int64
	Fingerprint     string
	Hidden          bool
	IsFavorite      bool
	SentCV          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Canonical reports whether p is a representative record.
func (p Posting) Canonical() bool {
	return p.DuplicateOfID == nil
}

// Candidate is the slim projection the fuzzy layer compares against.
type Candidate struct {
	ID         int64
	Title      string
	Company    string
	SourceSite string
}

// CandidateQuery bounds the fuzzy candidate fetch. CityKey is a normalized
// city and is matched exactly when non-empty.
type CandidateQuery struct {
	CityKey string
	Limit   int
}

type InsertStatus int

const (
	Inserted InsertStatus = iota + 1
	ConflictOnKey
)

func (s InsertStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case ConflictOnKey:
		return "conflict_on_key"
	default:
		return "unknown"
	}
}

// InsertResult carries the new id for Inserted, or the id of the record
// already holding the URL for ConflictOnKey.
type InsertResult struct {
	Status InsertStatus
	ID     int64
}

// Event is one resolver decision, as written to the audit ledger.
type Event struct {
	PostingID       int64
	Action          Action
	TargetPostingID *int64
	Signal          Signal
	Score           *float64
	CreatedAt       time.Time
}
