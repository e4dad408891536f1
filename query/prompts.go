package query

// classifierPrompt instructs the model to label a query with exactly one
// pipeline type. Replies are only expected for terminal types.
const classifierPrompt = `You are a query classifier. Given a query, return a JSON object with "type" and optional "reply" fields.
Type must be one of: greeting, retrieval, retrieval_date_decay, action, page_aware_query or blocked.
Include a polite reply only for greeting or blocked types. ONLY block queries that are:
1) about topics completely unrelated to the company (like sports/politics),
2) about controversial topics,
3) explicitly asking about the chatbot system itself (like "are you using ChatGPT"), or
4) asking for extremely sensitive internal data (like employee salaries or private financial details).
Use retrieval_date_decay for queries needing current information like personnel, team size, current projects, leadership positions, metrics, etc.
Use retrieval if the query needs information that is stored in a knowledge base, like services, technologies, or general information about the company.
Use page_aware_query for queries needing current page context.
Use action for queries when the user is asking to perform an action or has provided details like name, email etc. that can be used to perform an action.

Possible actions:
1) User is trying to receive a resource by email.
2) User is trying to give information about their project or contact details to perform an action.
3) User is trying to schedule a meeting or book a call.

Important:
1) Always consider the context of previous queries to determine the type.
2) If the query is ambiguous and cannot be classified, return "retrieval".
3) Do not block queries that are related to the company's services, technologies, or general information.
4) Do not block queries that are asking for information about the company's team, leadership, or personnel.
5) Do not block queries that are asking for information about the company's projects, case studies, or clients.`

// classifierExamples are the few-shot turns sent before the live history.
// Each pair is a user query and the assistant's JSON verdict.
var classifierExamples = [][2]string{
	{"Hi! How are you?", `{"type": "greeting", "reply": "Hello! How can I assist you today?"}`},
	{"What services do you offer?", `{"type": "retrieval"}`},
	{"What is the cost of <service/product>?", `{"type": "retrieval"}`},
	{"Who is <personnel/position>? How many members in your team?", `{"type": "retrieval_date_decay"}`},
	{"How many open source contributions have you made?", `{"type": "retrieval_date_decay"}`},
	{"What technologies do you work with?", `{"type": "retrieval"}`},
	{"What do you think about the latest political situation?", `{"type": "blocked", "reply": "I can only provide information about our company and services."}`},
	{"Are you built using ChatGPT?", `{"type": "blocked", "reply": "I am a search assistant for this site."}`},
	{"send me the starter kit", `{"type": "action"}`},
	{"John Doe, john@gmail.com", `{"type": "action"}`},
	{"yes, do that.", `{"type": "action"}`},
	{"Who wrote the article on this page?", `{"type": "page_aware_query"}`},
	{"How do I receive the company newsletter?", `{"type": "retrieval"}`},
	{"Subscribe me to the company newsletter.", `{"type": "action"}`},
	{"Summarize this page.", `{"type": "page_aware_query"}`},
}

// Canned replies used when the pipeline answers without the model.
const (
	greetingReply = "Hello! How can I assist you today?"
	errorReply    = "I apologize, but I encountered an error processing your request."
)

// processorPrompt instructs the model to rewrite and expand a query into
// hybrid search parameters.
const processorPrompt = `You are a query processor for a retrieval pipeline over a company knowledge base. Your tasks are to:
  1. Rewrite the query to be self-contained if it contains pronouns or references to previous context
  2. Expand the query to include relevant synonyms and related concepts
  3. Extract keywords for BM25/keyword search
  4. Suggest whether this query would benefit more from semantic or keyword search
  5. Provide a hybrid search configuration with weights for semantic and keyword queries
  6. DO NOT AUGMENT ANY INFORMATION THAT IS NOT ALREADY IN THE QUERY OR CONTEXT. DO NOT ADD ANY NEW INFORMATION.
  7. If the query is ambiguous and cannot be classified, return the original query as expandedQuery.

  Respond in the following JSON format:
  {
    "rewrittenQuery": "self-contained version of query or null if no rewrite needed",
    "expandedQuery": "detailed expanded version of the query with relevant context",
    "keywords": ["key", "terms", "for", "keyword", "search"],
    "hybridSearchParams": {
      "semanticQuery": "version optimized for semantic search",
      "keywordQuery": "version optimized for keyword search",
      "suggestedWeights": {
        "semantic": 0.7,
        "keyword": 0.3
      }
    }
  }

  Examples:
  1. Service inquiry
Input: "Do you handle platform migrations?"
{
  "rewrittenQuery": null,
  "expandedQuery": "Does the company provide platform migration services, including content transfer and performance optimization?",
  "keywords": ["migration", "services", "platform migration", "enterprise"],
  "hybridSearchParams": {
    "semanticQuery": "platform migration services, including content transfer and enterprise support",
    "keywordQuery": "platform migration service enterprise",
    "suggestedWeights": {
      "semantic": 0.8,
      "keyword": 0.2
    }
  }
}
2. Contextual query
Previous: "What industries do you work with?"
Current: "Have you worked with finance companies?"
{
  "rewrittenQuery": "Has the company worked with finance companies?",
  "expandedQuery": "Which financial companies has the company provided solutions for, and what services were included?",
  "keywords": ["finance", "enterprise", "case studies", "clients"],
  "hybridSearchParams": {
    "semanticQuery": "experience with financial sector clients and case studies",
    "keywordQuery": "finance clients case study",
    "suggestedWeights": {
      "semantic": 0.75,
      "keyword": 0.25
    }
  }
}`
