package extract

// skillKeywords is the fixed technology dictionary matched against job text.
// Order matters: extracted skills preserve dictionary order.
var skillKeywords = []string{
	// Programming languages
	"javascript", "python", "java", "c++", "c#", "php", "ruby", "go", "rust", "swift", "kotlin", "typescript",
	"scala", "perl", "r", "matlab", "sql", "html", "css", "shell", "bash", "haskell", "clojure", "erlang", "elixir",

	// Frameworks and libraries
	"react", "angular", "vue", "node.js", "express", "django", "flask", "spring", "laravel", "rails",
	"jquery", "bootstrap", "tailwind", "next.js", "nuxt.js", "gatsby", "svelte",

	// Databases
	"mysql", "postgresql", "mongodb", "redis", "elasticsearch", "cassandra", "dynamodb", "oracle",
	"sqlite", "firebase", "neo4j",

	// Cloud and devops
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "gitlab", "github", "terraform",
	"ansible", "chef", "puppet", "nginx", "apache", "linux", "ubuntu", "centos",

	// Tools
	"git", "jira", "confluence", "slack", "teams", "figma", "adobe", "photoshop", "illustrator",
	"sketch", "invision", "zeplin", "postman", "swagger", "rest", "graphql", "soap",

	// Methodologies
	"agile", "scrum", "kanban", "devops", "ci/cd", "tdd", "bdd", "microservices", "api",
}

// tagKeywords is the fixed role/domain dictionary matched against job text.
var tagKeywords = []string{
	"engineering", "frontend", "backend", "fullstack", "mobile", "ios", "android", "web",
	"data science", "machine learning", "ai", "blockchain", "cybersecurity", "qa", "testing",
	"devops", "sre", "product", "design", "ui/ux", "marketing", "sales", "hr", "finance",
	"operations", "customer success", "support", "management", "leadership", "startup",
	"enterprise", "remote", "hybrid", "onsite", "contract", "freelance", "internship",
}

// employmentBucket pairs one employment-type counter with its keywords.
type employmentBucket struct {
	name     string
	keywords []string
}

// employmentBuckets are scanned in order; the first keyword hit per bucket
// sets that bucket's counter to 1.
var employmentBuckets = []employmentBucket{
	{"fullTime", []string{"full time", "full-time", "permanent", "fte", "salaried"}},
	{"partTime", []string{"part time", "part-time", "hourly", "flexible"}},
	{"contract", []string{"contract", "contractor", "freelance", "consulting", "temporary"}},
	{"internship", []string{"intern", "internship", "student", "graduate program"}},
	{"temporary", []string{"temp", "temporary", "seasonal", "short term"}},
}

// currencyEntry maps one symbol or code to its ISO currency.
type currencyEntry struct {
	symbol   string
	currency string
}

// currencyTable is scanned in order against lowercased salary text; the
// first hit wins. Defaults to USD when nothing matches.
var currencyTable = []currencyEntry{
	{"$", "USD"},
	{"₹", "INR"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"usd", "USD"},
	{"inr", "INR"},
	{"eur", "EUR"},
	{"gbp", "GBP"},
	{"jpy", "JPY"},
}
