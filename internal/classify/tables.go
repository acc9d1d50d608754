package classify

// rule maps a code to the keyword substrings that select it. Tables are
// ordered slices: the first rule with a hit wins, so order is part of the
// contract (SOFTWARE is checked before QA, ENTRY before JUNIOR, ...).
type rule struct {
	code     string
	keywords []string
}

var categoryRules = []rule{
	{"SOFTWARE", []string{"software", "תוכנה", "הייטק", "hi-tech", "hitech", "פיתוח", "fullstack", "full-stack", "full stack", "backend", "frontend", "developer", "מפתח", "programmer", "תכנות"}},
	{"HARDWARE", []string{"hardware", "חומרה", "אלקטרוניקה", "electronics", "embedded", "firmware"}},
	{"QA", []string{"qa", "בדיקות", "quality", "testing", "בודק", "automation", "אוטומציה"}},
	{"DATA", []string{"data", "דאטה", "מידע", "analytics", "אנליטיקה", "bi ", "machine learning", "ml", "ai ", "בינה מלאכותית"}},
	{"DEVOPS", []string{"devops", "דבאופס", "cloud", "ענן", "infrastructure", "sre", "platform", "kubernetes", "docker"}},
	{"PRODUCT", []string{"product", "מוצר", "ניהול מוצר", "product management"}},
	{"DESIGN", []string{"design", "עיצוב", "ux", "ui", "גרפי", "graphic"}},
	{"MARKETING", []string{"marketing", "שיווק", "seo", "sem", "digital marketing", "שיווק דיגיטלי", "content", "תוכן"}},
	{"SALES", []string{"sales", "מכירות", "business development", "פיתוח עסקי", "account"}},
	{"HR", []string{"hr", "human resources", "משאבי אנוש", "recruitment", "גיוס"}},
	{"FINANCE", []string{"finance", "כספים", "חשבונאות", "accounting", "כלכלה", "bookkeep"}},
	{"ADMIN", []string{"admin", "אדמיניסטרציה", "office", "משרד", "secretary", "מזכיר"}},
	{"LEGAL", []string{"legal", "משפט", "law", "עורך דין", "lawyer", "compliance"}},
	{"MEDICAL", []string{"medical", "רפואה", "healthcare", "בריאות", "pharma", "clinical", "nurse", "אח ", "אחות", "doctor", "רופא"}},
	{"EDUCATION", []string{"education", "הדרכה", "הוראה", "training", "teach", "מורה", "מדריך", "tutor"}},
	{"ENGINEERING", []string{"engineering", "הנדסה", "מהנדס", "mechanical", "civil", "electrical"}},
	{"CUSTOMER_SERVICE", []string{"customer service", "שירות לקוחות", "support", "תמיכה", "help desk"}},
	{"LOGISTICS", []string{"logistics", "לוגיסטיקה", "supply chain", "שרשרת", "warehouse", "מחסן", "shipping", "משלוח"}},
	{"MANAGEMENT", []string{"management", "ניהול", "מנהל", "manager", "director", "דירקטור", "vp ", "cto", "ceo", "coo", "cfo"}},
	{"SCIENCE", []string{"science", "מדע", "biotech", "ביוטק", "chemistry", "כימיה", "biology", "ביולוגיה", "research", "מחקר"}},
	{"SECURITY", []string{"security", "אבטח", "cyber", "סייבר", "infosec", "penetration"}},
}

var jobTypeRules = []rule{
	{"FULL_TIME", []string{"full time", "full-time", "fulltime", "משרה מלאה", "מלאה"}},
	{"PART_TIME", []string{"part time", "part-time", "parttime", "משרה חלקית", "חלקית"}},
	{"CONTRACT", []string{"contract", "חוזה", "outsource", "מיקור חוץ"}},
	{"FREELANCE", []string{"freelance", "פרילנס", "עצמאי", "independent"}},
	{"INTERNSHIP", []string{"internship", "intern", "סטאז", "סטודנט", "student"}},
	{"TEMPORARY", []string{"temporary", "temp ", "זמני", "זמנית"}},
}

var experienceRules = []rule{
	{"ENTRY", []string{"entry", "ללא ניסיון", "no experience", "ניסיון", "junior", "0-1", "0 -"}},
	{"JUNIOR", []string{"junior", "ג'וניור", "ג׳וניור", "1-2", "1-3", "ניסיון מועט"}},
	{"MID", []string{"mid", "middle", "ביניים", "3-5", "2-5", "ניסיון בינוני"}},
	{"SENIOR", []string{"senior", "בכיר", "ניסיון רב", "5+", "5-", "6+", "7+", "experienced"}},
	{"EXECUTIVE", []string{"executive", "director", "דירקטור", "vp", "head of", "ראש", "chief", "c-level", "מנהל בכיר"}},
}

var (
	remoteKeywords = []string{"remote", "עבודה מרחוק", "מהבית", "from home", "work from home", "wfh"}
	hybridKeywords = []string{"hybrid", "היברידי", "היברידית", "flexible"}
)
