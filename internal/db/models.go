package db

import "time"

// Posting maps jobs.postings. skills (text[]) and the self-reference
// constraints are added in post_automigrate.sql.
type Posting struct {
	PostingID       int64      `gorm:"column:posting_id;primaryKey;autoIncrement"`
	PostingUUID     string     `gorm:"column:posting_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title           string     `gorm:"column:title;type:text;not null"`
	TitleHe         *string    `gorm:"column:title_he;type:text"`
	Company         *string    `gorm:"column:company;type:text"`
	CompanyVerified bool       `gorm:"column:company_verified;type:boolean;not null;default:false"`
	Location        *string    `gorm:"column:location;type:text"`
	City            *string    `gorm:"column:city;type:text"`
	Region          *string    `gorm:"column:region;type:text"`
	Description     *string    `gorm:"column:description;type:text"`
	DescriptionHe   *string    `gorm:"column:description_he;type:text"`
	Language        *string    `gorm:"column:language;type:text"`
	JobType         *string    `gorm:"column:job_type;type:text"`
	ExperienceLevel *string    `gorm:"column:experience_level;type:text"`
	Salary          *string    `gorm:"column:salary;type:text"`
	SalaryMin       *int       `gorm:"column:salary_min;type:integer"`
	SalaryMax       *int       `gorm:"column:salary_max;type:integer"`
	Category        *string    `gorm:"column:category;type:text"`
	URL             string     `gorm:"column:url;type:text;not null;uniqueIndex:postings_url_key"`
	SourceURL       *string    `gorm:"column:source_url;type:text"`
	SourceSite      string     `gorm:"column:source_site;type:text;not null"`
	PostedAt        *time.Time `gorm:"column:posted_at;type:timestamptz"`
	FirstSeenAt     time.Time  `gorm:"column:first_seen_at;type:timestamptz;not null;default:now()"`
	LastSeenAt      time.Time  `gorm:"column:last_seen_at;type:timestamptz;not null;default:now()"`
	IsActive        bool       `gorm:"column:is_active;type:boolean;not null;default:true"`
	IsRemote        bool       `gorm:"column:is_remote;type:boolean;not null;default:false"`
	IsHybrid        bool       `gorm:"column:is_hybrid;type:boolean;not null;default:false"`
	DuplicateOfID   *int64     `gorm:"column:duplicate_of_id;type:bigint"`
	Fingerprint     string     `gorm:"column:fingerprint;type:char(32);not null"`
	CityKey         string     `gorm:"column:city_key;type:text;not null;default:''"`
	Hidden          bool       `gorm:"column:hidden;type:boolean;not null;default:false"`
	IsFavorite      bool       `gorm:"column:is_favorite;type:boolean;not null;default:false"`
	SentCV          bool       `gorm:"column:sent_cv;type:boolean;not null;default:false"`
	CreatedAt       time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Posting) TableName() string { return "jobs.postings" }

// ScrapeLog maps jobs.scrape_logs, one row per (source, run).
type ScrapeLog struct {
	ScrapeLogID   int64     `gorm:"column:scrape_log_id;primaryKey;autoIncrement"`
	CycleID       *string   `gorm:"column:cycle_id;type:uuid"`
	Site          string    `gorm:"column:site;type:text;not null"`
	Status        string    `gorm:"column:status;type:text;not null"`
	JobsFound     int       `gorm:"column:jobs_found;type:integer;not null;default:0"`
	JobsNew       int       `gorm:"column:jobs_new;type:integer;not null;default:0"`
	JobsMerged    int       `gorm:"column:jobs_merged;type:integer;not null;default:0"`
	JobsDuplicate int       `gorm:"column:jobs_duplicate;type:integer;not null;default:0"`
	JobsInvalid   int       `gorm:"column:jobs_invalid;type:integer;not null;default:0"`
	Errors        int       `gorm:"column:errors;type:integer;not null;default:0"`
	DurationMS    int64     `gorm:"column:duration_ms;type:bigint;not null;default:0"`
	Error         *string   `gorm:"column:error;type:varchar(1000)"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ScrapeLog) TableName() string { return "jobs.scrape_logs" }

// DedupEvent maps jobs.dedup_events.
type DedupEvent struct {
	DedupEventID    int64     `gorm:"column:dedup_event_id;primaryKey;autoIncrement"`
	PostingID       int64     `gorm:"column:posting_id;type:bigint;not null"`
	Decision        string    `gorm:"column:decision;type:text;not null"`
	TargetPostingID *int64    `gorm:"column:target_posting_id;type:bigint"`
	Signal          string    `gorm:"column:signal;type:text;not null"`
	Score           *float64  `gorm:"column:score;type:double precision"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DedupEvent) TableName() string { return "jobs.dedup_events" }

func autoMigrateModels() []any {
	return []any{
		&Posting{},
		&ScrapeLog{},
		&DedupEvent{},
	}
}
