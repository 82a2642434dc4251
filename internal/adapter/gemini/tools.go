package gemini

import "github.com/google/generative-ai-go/genai"

const (
	toolRepositoryInfo    = "get_repository_info"
	toolReadme            = "get_readme_content"
	toolRecentActivity    = "get_recent_activity"
	toolTopContributors   = "get_top_contributors"
	toolRepositoryMetrics = "get_repository_metrics"
)

type toolDef struct {
	name        string
	description string
	errPrefix   string
}

var toolDefs = []toolDef{
	{
		name:        toolRepositoryInfo,
		description: "Very useful for obtaining basic information about a GitHub repository, such as its description, number of stars, forks, main language, creation date, and owner. Use this tool first to get an overview of the project.",
		errPrefix:   "Error retrieving repository information",
	},
	{
		name:        toolReadme,
		description: "Allows you to retrieve the content of a repository's README.md file. This is the best source for understanding the project's purpose, how to use it, and its main features. Use this tool when you need details on how to use the project.",
		errPrefix:   "Error retrieving README",
	},
	{
		name:        toolRecentActivity,
		description: "Allows you to check if a project is actively maintained by retrieving the date of the last commit and information about recent commits. Use this tool to assess if the project is still active.",
		errPrefix:   "Error retrieving recent activity",
	},
	{
		name:        toolTopContributors,
		description: "Retrieves the list of the main contributors to the repository. Useful for evaluating the diversity and engagement of the community.",
		errPrefix:   "Error retrieving contributors",
	},
	{
		name:        toolRepositoryMetrics,
		description: "Retrieves all the necessary metrics to calculate the repository health score (stars, forks, issues, license, wiki, etc.). Use this tool to get a complete view of quality indicators.",
		errPrefix:   "Error retrieving metrics",
	},
}

// functionDeclarations 每个工具都只接收 owner 和 repo
func functionDeclarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(toolDefs))
	for _, def := range toolDefs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.name,
			Description: def.description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"owner": {
						Type:        genai.TypeString,
						Description: "The owner of the repository (e.g., 'langchain-ai')",
					},
					"repo": {
						Type:        genai.TypeString,
						Description: "The name of the repository (e.g., 'langchainjs')",
					},
				},
				Required: []string{"owner", "repo"},
			},
		})
	}
	return decls
}

func errorPrefix(name string) string {
	for _, def := range toolDefs {
		if def.name == name {
			return def.errPrefix
		}
	}
	return "Error calling tool " + name
}
