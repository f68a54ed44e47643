// Package tools provides native research tools that run in-process.
//
// [LocalDocs] serves a document directory as a research.ToolSource with
// list, read and search tools; [WebFetchTool] fetches a URL as plain text;
// [WebSearchTool] queries a pluggable search backend such as [TavilySearch].
//
//	docs, err := tools.NewLocalDocs("./research_docs")
//	eng, err := research.New(
//	    research.WithResearchModel(model),
//	    research.WithToolSources(docs),
//	)
package tools
