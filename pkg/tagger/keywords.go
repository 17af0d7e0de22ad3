package tagger

// DefaultKeywords is the built-in technology vocabulary, grouped by category.
var DefaultKeywords = map[string][]string{
	"ai_ml": {
		"artificial intelligence", "machine learning", "deep learning", "neural network",
		"tensorflow", "pytorch", "keras", "scikit-learn", "opencv", "nlp", "computer vision",
		"transformer", "bert", "gpt", "llm", "chatgpt", "openai", "anthropic", "claude",
		"reinforcement learning", "supervised learning", "unsupervised learning",
		"regression", "classification", "clustering", "pandas", "numpy", "jupyter",
	},
	"frameworks": {
		"react", "vue", "angular", "svelte", "next.js", "nuxt", "django", "flask", "fastapi",
		"express", "spring", "laravel", "rails", "asp.net", "blazor", "flutter", "swiftui",
		"jetpack compose", "tailwind", "bootstrap", "material ui", "ant design",
	},
	"languages": {
		"python", "javascript", "typescript", "rust", "go", "java", "c++", "c#", "php",
		"ruby", "swift", "kotlin", "scala", "haskell", "elixir", "dart", "r", "matlab",
		"sql", "html", "css", "sass", "less", "webpack", "vite", "babel",
	},
	"tools": {
		"docker", "kubernetes", "k8s", "terraform", "ansible", "jenkins", "gitlab", "github",
		"bitbucket", "aws", "azure", "gcp", "google cloud", "vercel", "netlify", "heroku",
		"digitalocean", "linode", "nginx", "apache", "redis", "postgresql", "mysql",
		"mongodb", "elasticsearch", "kafka", "rabbitmq", "graphql", "rest api",
	},
	"concepts": {
		"microservices", "serverless", "devops", "ci/cd", "cicd", "agile", "scrum",
		"tdd", "bdd", "unit testing", "integration testing", "e2e testing", "code review",
		"refactoring", "technical debt", "scalability", "performance", "optimization",
		"security", "authentication", "authorization", "oauth", "jwt", "encryption",
		"blockchain", "web3", "cryptocurrency", "smart contracts", "defi",
	},
	"platforms": {
		"aws", "azure", "google cloud", "gcp", "firebase", "supabase", "airtable",
		"notion", "slack", "discord", "telegram", "api", "webhook", "saas", "paas", "iaas",
	},
}

// Default returns a Tagger over DefaultKeywords.
func Default() *Tagger {
	return MustNew(DefaultKeywords)
}
