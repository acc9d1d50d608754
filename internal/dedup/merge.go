package dedup

import "time"

// MergePatch is the set of fills computed by Merge. Nil fields are left
// alone; SeenAt and reactivation are always applied.
type MergePatch struct {
	Company         *string
	Salary          *string
	SalaryMin       *int
	SalaryMax       *int
	Description     *string
	Category        *string
	ExperienceLevel *string
	JobType         *string
	SeenAt          time.Time
}

// HasFills reports whether the patch changes anything besides the
// last-seen and activity columns.
func (m MergePatch) HasFills() bool {
	return m.Company != nil ||
		m.Salary != nil ||
		m.SalaryMin != nil ||
		m.SalaryMax != nil ||
		m.Description != nil ||
		m.Category != nil ||
		m.ExperienceLevel != nil ||
		m.JobType != nil
}

// Merge copies fields that are empty on existing but present on incoming.
// Existing values always win.
func Merge(existing, incoming Posting, seenAt time.Time) MergePatch {
	patch := MergePatch{SeenAt: seenAt}

	patch.Company = fillString(existing.Company, incoming.Company)
	patch.Salary = fillString(existing.Salary, incoming.Salary)
	patch.SalaryMin = fillInt(existing.SalaryMin, incoming.SalaryMin)
	patch.SalaryMax = fillInt(existing.SalaryMax, incoming.SalaryMax)
	patch.Description = fillString(existing.Description, incoming.Description)
	patch.Category = fillString(existing.Category, incoming.Category)
	patch.ExperienceLevel = fillString(existing.ExperienceLevel, incoming.ExperienceLevel)
	patch.JobType = fillString(existing.JobType, incoming.JobType)

	return patch
}

// Apply returns p with the patch applied the same way a store would.
func (m MergePatch) Apply(p Posting) Posting {
	if m.Company != nil {
		p.Company = *m.Company
	}
	if m.Salary != nil {
		p.Salary = *m.Salary
	}
	if m.SalaryMin != nil {
		v := *m.SalaryMin
		p.SalaryMin = &v
	}
	if m.SalaryMax != nil {
		v := *m.SalaryMax
		p.SalaryMax = &v
	}
	if m.Description != nil {
		p.Description = *m.Description
	}
	if m.Category != nil {
		p.Category = *m.Category
	}
	if m.ExperienceLevel != nil {
		p.ExperienceLevel = *m.ExperienceLevel
	}
	if m.JobType != nil {
		p.JobType = *m.JobType
	}
	if m.SeenAt.After(p.LastSeenAt) {
		p.LastSeenAt = m.SeenAt
	}
	p.IsActive = true
	return p
}

func fillString(existing, incoming string) *string {
	if existing != "" || incoming == "" {
		return nil
	}
	v := incoming
	return &v
}

// Zero salaries count as absent on both sides.
func fillInt(existing, incoming *int) *int {
	if existing != nil && *existing != 0 {
		return nil
	}
	if incoming == nil || *incoming == 0 {
		return nil
	}
	v := *incoming
	return &v
}
