package skills

// Category groups skills for reporting and career advice.
type Category string

const (
	CategoryLanguage Category = "language"
	CategoryFrontend Category = "frontend"
	CategoryBackend  Category = "backend"
	CategoryDatabase Category = "database"
	CategoryCloud    Category = "cloud_devops"
	CategoryData     Category = "data_ai"
	CategoryTools    Category = "tools"
)

// Skill is one canonical vocabulary entry. Terms are the lower-case surface
// forms recognised in text; Ambiguous terms are ordinary words as well and are
// skipped in strict mode.
type Skill struct {
	Name      string
	Category  Category
	Terms     []string
	Ambiguous []string
}

// DefaultVocabulary is shared by resume and job description extraction.
var DefaultVocabulary = []Skill{
	{Name: "Python", Category: CategoryLanguage, Terms: []string{"python", "python3"}},
	{Name: "Java", Category: CategoryLanguage, Terms: []string{"java"}},
	{Name: "JavaScript", Category: CategoryLanguage, Terms: []string{"javascript", "ecmascript"}, Ambiguous: []string{"js"}},
	{Name: "TypeScript", Category: CategoryLanguage, Terms: []string{"typescript"}},
	{Name: "C++", Category: CategoryLanguage, Terms: []string{"c++", "cpp"}},
	{Name: "C#", Category: CategoryLanguage, Terms: []string{"c#", "csharp"}},
	{Name: "Ruby", Category: CategoryLanguage, Terms: []string{"ruby"}},
	{Name: "Go", Category: CategoryLanguage, Terms: []string{"golang"}, Ambiguous: []string{"go"}},
	{Name: "Rust", Category: CategoryLanguage, Terms: []string{"rust"}},
	{Name: "PHP", Category: CategoryLanguage, Terms: []string{"php"}},
	{Name: "Swift", Category: CategoryLanguage, Terms: []string{"swift"}},
	{Name: "Kotlin", Category: CategoryLanguage, Terms: []string{"kotlin"}},
	{Name: "Scala", Category: CategoryLanguage, Terms: []string{"scala"}},
	{Name: "R", Category: CategoryLanguage, Ambiguous: []string{"r"}},

	{Name: "React", Category: CategoryFrontend, Terms: []string{"react", "react.js", "reactjs"}},
	{Name: "Angular", Category: CategoryFrontend, Terms: []string{"angular", "angularjs"}},
	{Name: "Vue", Category: CategoryFrontend, Terms: []string{"vue", "vue.js", "vuejs"}},
	{Name: "Svelte", Category: CategoryFrontend, Terms: []string{"svelte"}},
	{Name: "HTML", Category: CategoryFrontend, Terms: []string{"html", "html5"}},
	{Name: "CSS", Category: CategoryFrontend, Terms: []string{"css", "css3"}},
	{Name: "Sass", Category: CategoryFrontend, Terms: []string{"sass", "scss"}},
	{Name: "Tailwind", Category: CategoryFrontend, Terms: []string{"tailwind", "tailwindcss"}},
	{Name: "Bootstrap", Category: CategoryFrontend, Terms: []string{"bootstrap"}},
	{Name: "Webpack", Category: CategoryFrontend, Terms: []string{"webpack"}},
	{Name: "Vite", Category: CategoryFrontend, Terms: []string{"vite"}},

	{Name: "Node.js", Category: CategoryBackend, Terms: []string{"node.js", "nodejs"}, Ambiguous: []string{"node"}},
	{Name: "Express", Category: CategoryBackend, Terms: []string{"express.js", "expressjs"}, Ambiguous: []string{"express"}},
	{Name: "Django", Category: CategoryBackend, Terms: []string{"django"}},
	{Name: "Flask", Category: CategoryBackend, Terms: []string{"flask"}},
	{Name: "FastAPI", Category: CategoryBackend, Terms: []string{"fastapi"}},
	{Name: "Spring Boot", Category: CategoryBackend, Terms: []string{"spring boot", "springboot"}},
	{Name: "ASP.NET", Category: CategoryBackend, Terms: []string{"asp.net"}},
	{Name: "Rails", Category: CategoryBackend, Terms: []string{"ruby on rails", "rails"}},
	{Name: "Laravel", Category: CategoryBackend, Terms: []string{"laravel"}},
	{Name: "NestJS", Category: CategoryBackend, Terms: []string{"nest.js", "nestjs"}},

	{Name: "SQL", Category: CategoryDatabase, Terms: []string{"sql"}},
	{Name: "MySQL", Category: CategoryDatabase, Terms: []string{"mysql"}},
	{Name: "PostgreSQL", Category: CategoryDatabase, Terms: []string{"postgresql", "postgres"}},
	{Name: "MongoDB", Category: CategoryDatabase, Terms: []string{"mongodb", "mongo"}},
	{Name: "Redis", Category: CategoryDatabase, Terms: []string{"redis"}},
	{Name: "DynamoDB", Category: CategoryDatabase, Terms: []string{"dynamodb"}},
	{Name: "Oracle", Category: CategoryDatabase, Terms: []string{"oracle"}},
	{Name: "Cassandra", Category: CategoryDatabase, Terms: []string{"cassandra"}},
	{Name: "Elasticsearch", Category: CategoryDatabase, Terms: []string{"elasticsearch"}},
	{Name: "Firebase", Category: CategoryDatabase, Terms: []string{"firebase"}},
	{Name: "NoSQL", Category: CategoryDatabase, Terms: []string{"nosql"}},

	{Name: "AWS", Category: CategoryCloud, Terms: []string{"aws", "amazon web services"}},
	{Name: "Azure", Category: CategoryCloud, Terms: []string{"azure"}},
	{Name: "GCP", Category: CategoryCloud, Terms: []string{"gcp", "google cloud"}},
	{Name: "Docker", Category: CategoryCloud, Terms: []string{"docker"}},
	{Name: "Kubernetes", Category: CategoryCloud, Terms: []string{"kubernetes", "k8s"}},
	{Name: "Jenkins", Category: CategoryCloud, Terms: []string{"jenkins"}},
	{Name: "Terraform", Category: CategoryCloud, Terms: []string{"terraform"}},
	{Name: "Ansible", Category: CategoryCloud, Terms: []string{"ansible"}},
	{Name: "CI/CD", Category: CategoryCloud, Terms: []string{"ci/cd", "cicd"}},
	{Name: "GitHub Actions", Category: CategoryCloud, Terms: []string{"github actions"}},
	{Name: "GitLab CI", Category: CategoryCloud, Terms: []string{"gitlab ci"}},

	{Name: "Machine Learning", Category: CategoryData, Terms: []string{"machine learning"}, Ambiguous: []string{"ml"}},
	{Name: "Deep Learning", Category: CategoryData, Terms: []string{"deep learning", "neural networks"}},
	{Name: "AI", Category: CategoryData, Terms: []string{"artificial intelligence"}, Ambiguous: []string{"ai"}},
	{Name: "Data Science", Category: CategoryData, Terms: []string{"data science"}},
	{Name: "TensorFlow", Category: CategoryData, Terms: []string{"tensorflow"}},
	{Name: "PyTorch", Category: CategoryData, Terms: []string{"pytorch"}},
	{Name: "scikit-learn", Category: CategoryData, Terms: []string{"scikit-learn", "sklearn"}},
	{Name: "Pandas", Category: CategoryData, Terms: []string{"pandas"}},
	{Name: "NumPy", Category: CategoryData, Terms: []string{"numpy"}},
	{Name: "Matplotlib", Category: CategoryData, Terms: []string{"matplotlib"}},
	{Name: "NLP", Category: CategoryData, Terms: []string{"nlp", "natural language processing"}},
	{Name: "Computer Vision", Category: CategoryData, Terms: []string{"computer vision"}},
	{Name: "Data Analysis", Category: CategoryData, Terms: []string{"data analysis"}},
	{Name: "Statistics", Category: CategoryData, Terms: []string{"statistics"}},

	{Name: "Git", Category: CategoryTools, Terms: []string{"git"}},
	{Name: "Jira", Category: CategoryTools, Terms: []string{"jira"}},
	{Name: "Confluence", Category: CategoryTools, Terms: []string{"confluence"}},
	{Name: "Linux", Category: CategoryTools, Terms: []string{"linux"}},
	{Name: "Bash", Category: CategoryTools, Terms: []string{"bash"}},
	{Name: "Agile", Category: CategoryTools, Terms: []string{"agile"}},
	{Name: "Scrum", Category: CategoryTools, Terms: []string{"scrum"}},
	{Name: "REST API", Category: CategoryTools, Terms: []string{"rest api", "rest apis", "restful"}},
	{Name: "GraphQL", Category: CategoryTools, Terms: []string{"graphql"}},
	{Name: "Microservices", Category: CategoryTools, Terms: []string{"microservices", "microservice"}},
	{Name: "System Design", Category: CategoryTools, Terms: []string{"system design"}},
	{Name: "Unit Testing", Category: CategoryTools, Terms: []string{"unit testing", "unit tests"}},
	{Name: "Jest", Category: CategoryTools, Terms: []string{"jest"}},
	{Name: "Pytest", Category: CategoryTools, Terms: []string{"pytest"}},
	{Name: "Selenium", Category: CategoryTools, Terms: []string{"selenium"}},
}
