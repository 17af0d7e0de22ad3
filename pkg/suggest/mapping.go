package suggest

// DefaultMapping maps topical search terms to well-known communities.
var DefaultMapping = map[string][]string{
	"ai":               {"artificial", "MachineLearning", "singularity", "artificialinteligence", "deeplearning"},
	"python":           {"Python", "learnpython", "pythontips", "Pythonprojects", "pythongamedev"},
	"javascript":       {"javascript", "learnjavascript", "node", "reactjs", "vuejs", "angular"},
	"webdev":           {"webdev", "web_design", "webdevelopment", "fullstack", "frontend", "backend"},
	"machine learning": {"MachineLearning", "learnmachinelearning", "deeplearning", "computervision"},
	"data science":     {"datascience", "learn_datascience", "datasets", "dataisbeautiful"},
	"cybersecurity":    {"cybersecurity", "netsec", "hacking", "privacy", "crypto"},
	"blockchain":       {"CryptoCurrency", "Bitcoin", "ethereum", "blockchain", "CryptoTechnology"},
	"cloud":            {"aws", "azure", "googlecloud", "devops", "sysadmin"},
	"mobile":           {"androiddev", "iosdev", "reactnative", "flutterdev", "mobiledev"},
	"game dev":         {"gamedev", "Unity3D", "unrealengine", "indiegaming", "gamedevelopment"},
	"database":         {"database", "sql", "nosql", "mongodb", "postgresql"},
	"devops":           {"devops", "aws", "azure", "docker", "kubernetes"},
	"ui ux":            {"ui_design", "UXDesign", "web_design", "graphic_design", "Figma"},
}

// DefaultTopicKeywords decide whether a live search result is on topic.
var DefaultTopicKeywords = []string{
	"programming", "coding", "developer", "software", "tech", "technology",
	"computer", "data", "ai", "machine learning", "web", "mobile", "app",
	"python", "javascript", "java", "react", "node", "database", "cloud",
	"devops", "cybersecurity", "blockchain", "crypto", "gamedev", "ui",
	"ux", "design", "algorithm", "api", "framework", "library",
}
