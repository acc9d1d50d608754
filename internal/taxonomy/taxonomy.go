// Package taxonomy holds the closed vocabularies postings are classified
// into, with their Hebrew and English display labels.
package taxonomy

// Label is a bilingual display name.
type Label struct {
	He string `json:"he"`
	En string `json:"en"`
}

// Entry pairs a code with its label. Slices of entries keep declaration order.
type Entry struct {
	Code  string `json:"key"`
	Label Label  `json:"label"`
}

const (
	CategoryOther = "OTHER"
)

var Categories = []Entry{
	{"SOFTWARE", Label{"הייטק-תוכנה", "Software Development"}},
	{"HARDWARE", Label{"הייטק-חומרה", "Hardware Engineering"}},
	{"QA", Label{"בדיקות תוכנה", "QA & Testing"}},
	{"DATA", Label{"דאטה ומידע", "Data & Analytics"}},
	{"DEVOPS", Label{"דבאופס", "DevOps & Infrastructure"}},
	{"PRODUCT", Label{"ניהול מוצר", "Product Management"}},
	{"DESIGN", Label{"עיצוב", "Design & UX"}},
	{"MARKETING", Label{"שיווק", "Marketing"}},
	{"SALES", Label{"מכירות", "Sales"}},
	{"HR", Label{"משאבי אנוש", "Human Resources"}},
	{"FINANCE", Label{"כספים", "Finance & Accounting"}},
	{"ADMIN", Label{"אדמיניסטרציה", "Administration"}},
	{"LEGAL", Label{"משפטים", "Legal"}},
	{"MEDICAL", Label{"רפואה", "Medical & Healthcare"}},
	{"EDUCATION", Label{"הדרכה/הוראה", "Education & Training"}},
	{"ENGINEERING", Label{"הנדסה", "Engineering"}},
	{"CUSTOMER_SERVICE", Label{"שירות לקוחות", "Customer Service"}},
	{"LOGISTICS", Label{"לוגיסטיקה", "Logistics & Supply Chain"}},
	{"MANAGEMENT", Label{"ניהול", "Management & Executive"}},
	{"SCIENCE", Label{"מדעים", "Science & Biotech"}},
	{"SECURITY", Label{"אבטחת מידע", "Cybersecurity"}},
	{CategoryOther, Label{"כללי", "Other"}},
}

var JobTypes = []Entry{
	{"FULL_TIME", Label{"משרה מלאה", "Full-time"}},
	{"PART_TIME", Label{"משרה חלקית", "Part-time"}},
	{"CONTRACT", Label{"חוזה", "Contract"}},
	{"FREELANCE", Label{"פרילנס", "Freelance"}},
	{"INTERNSHIP", Label{"סטאז'", "Internship"}},
	{"TEMPORARY", Label{"זמנית", "Temporary"}},
}

var ExperienceLevels = []Entry{
	{"ENTRY", Label{"ללא ניסיון", "Entry Level"}},
	{"JUNIOR", Label{"ניסיון מועט", "Junior (1-2 years)"}},
	{"MID", Label{"ניסיון בינוני", "Mid Level (3-5 years)"}},
	{"SENIOR", Label{"ניסיון רב", "Senior (5+ years)"}},
	{"EXECUTIVE", Label{"בכיר", "Executive / Director"}},
}

var Regions = []Entry{
	{"NORTH", Label{"צפון", "North"}},
	{"HAIFA", Label{"חיפה", "Haifa"}},
	{"SHARON", Label{"שרון", "Sharon"}},
	{"CENTER", Label{"מרכז", "Center"}},
	{"TEL_AVIV", Label{"תל אביב", "Tel Aviv"}},
	{"JERUSALEM", Label{"ירושלים", "Jerusalem"}},
	{"SOUTH", Label{"דרום", "South"}},
	{"JUDEA_SAMARIA", Label{"יהודה ושומרון", "Judea & Samaria"}},
	{"REMOTE", Label{"עבודה מרחוק", "Remote"}},
}

// CityRegion maps a city spelling to a region code.
type CityRegion struct {
	City   string
	Region string
}

// CityRegions is scanned in order; the first city contained in the input wins.
var CityRegions = []CityRegion{
	{"תל אביב", "TEL_AVIV"}, {"tel aviv", "TEL_AVIV"}, {"ramat gan", "TEL_AVIV"}, {"רמת גן", "TEL_AVIV"},
	{"בני ברק", "TEL_AVIV"}, {"bnei brak", "TEL_AVIV"}, {"גבעתיים", "TEL_AVIV"}, {"givatayim", "TEL_AVIV"},
	{"הרצליה", "TEL_AVIV"}, {"herzliya", "TEL_AVIV"}, {"פתח תקווה", "CENTER"}, {"petah tikva", "CENTER"},
	{"ירושלים", "JERUSALEM"}, {"jerusalem", "JERUSALEM"},
	{"חיפה", "HAIFA"}, {"haifa", "HAIFA"},
	{"באר שבע", "SOUTH"}, {"beer sheva", "SOUTH"}, {"beersheba", "SOUTH"},
	{"נתניה", "SHARON"}, {"netanya", "SHARON"}, {"כפר סבא", "SHARON"}, {"kfar saba", "SHARON"},
	{"רעננה", "SHARON"}, {"raanana", "SHARON"}, {"הוד השרון", "SHARON"}, {"hod hasharon", "SHARON"},
	{"ראשון לציון", "CENTER"}, {"rishon lezion", "CENTER"},
	{"אשדוד", "SOUTH"}, {"ashdod", "SOUTH"}, {"אשקלון", "SOUTH"}, {"ashkelon", "SOUTH"},
	{"רחובות", "CENTER"}, {"rehovot", "CENTER"}, {"לוד", "CENTER"}, {"lod", "CENTER"},
	{"רמלה", "CENTER"}, {"ramla", "CENTER"}, {"מודיעין", "CENTER"}, {"modiin", "CENTER"},
	{"נצרת", "NORTH"}, {"nazareth", "NORTH"}, {"טבריה", "NORTH"}, {"tiberias", "NORTH"},
	{"עפולה", "NORTH"}, {"afula", "NORTH"}, {"כרמיאל", "NORTH"}, {"karmiel", "NORTH"},
	{"אילת", "SOUTH"}, {"eilat", "SOUTH"},
	{"יקנעם", "NORTH"}, {"yokneam", "NORTH"},
	{"קיסריה", "SHARON"}, {"caesarea", "SHARON"},
}

// UnknownEmployers are placeholder company names treated as "no employer".
var UnknownEmployers = []string{"לא צוין", "N/A", "Unknown", "חסוי", "confidential", "Confidential"}

// LabelOf returns the label for code in entries.
func LabelOf(entries []Entry, code string) (Label, bool) {
	for _, e := range entries {
		if e.Code == code {
			return e.Label, true
		}
	}
	return Label{}, false
}

// IsCode reports whether code belongs to entries.
func IsCode(entries []Entry, code string) bool {
	_, ok := LabelOf(entries, code)
	return ok
}
