package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/eduplanner-backend/internal/domain/planning"
	"github.com/yungbote/eduplanner-backend/internal/domain/roster"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
)

var lessonPlanSchema = gemini.Object(map[string]*gemini.Schema{
	"title":              gemini.String("The title of the lesson, which should include the main topic."),
	"learningObjectives": gemini.ArrayOf(&gemini.Schema{Type: gemini.TypeString}, "A list of what students will be able to do after the lesson."),
	"difficulty":         gemini.Enum("Beginner", "Intermediate", "Advanced"),
	"lessonStructure": gemini.ArrayOf(gemini.Object(map[string]*gemini.Schema{
		"sectionTitle":  {Type: gemini.TypeString},
		"content":       gemini.String("Detailed explanation for this section."),
		"estimatedTime": gemini.String("e.g., '15 minutes'"),
	}, "sectionTitle", "content", "estimatedTime"), "An array of objects, each representing a section of the lesson."),
	"examples": gemini.ArrayOf(gemini.Object(map[string]*gemini.Schema{
		"exampleTitle": {Type: gemini.TypeString},
		"description":  {Type: gemini.TypeString},
		"code":         gemini.String("An optional code block, if applicable."),
	}, "exampleTitle", "description"), "An array of objects, each providing a practical example."),
	"assessmentQuestions": gemini.ArrayOf(gemini.Object(map[string]*gemini.Schema{
		"question": {Type: gemini.TypeString},
		"type":     gemini.Enum("Multiple Choice", "Short Answer", "Coding Problem"),
		"options":  gemini.ArrayOf(&gemini.Schema{Type: gemini.TypeString}, "A list of options for Multiple Choice questions."),
		"answer":   gemini.String("The correct answer to the question."),
	}, "question", "type", "answer"), "An array of questions to test student understanding."),
}, "title", "learningObjectives", "difficulty", "lessonStructure", "examples", "assessmentQuestions")

var assetContentSchema = gemini.Object(map[string]*gemini.Schema{
	"questions": gemini.ArrayOf(gemini.Object(map[string]*gemini.Schema{
		"id":      {Type: gemini.TypeString},
		"text":    gemini.String("The revised question text."),
		"type":    gemini.Enum("Multiple Choice", "Short Answer", "Coding"),
		"options": gemini.ArrayOf(&gemini.Schema{Type: gemini.TypeString}, "Optional list of choices for multiple choice."),
		"answer":  gemini.String("Optional correct answer."),
	}, "id", "text", "type"), "An array of question objects."),
}, "questions")

func feedbackReviewPrompt(feedbackJSON string) string {
	return `As the Analyst agent, you must review the following agent performance feedback data, which has been collected from the user via a 'thumbs up'/'thumbs down' system.
Your task is to identify patterns in the feedback (e.g., an agent being unclear, responses being too long/short, incorrect information) and suggest specific, actionable improvements to the system instructions for the respective agents.
Frame your response as a report to the professor. Be concise and structured.

--- FEEDBACK DATA (JSON) ---
` + feedbackJSON + `
--- END OF FEEDBACK DATA ---

Please begin your analysis now.`
}

func generateLessonPlanPrompt(topic, objectives, difficulty string) string {
	return fmt.Sprintf(`Generate a detailed lesson plan for a Data Structures and Algorithms course.
Topic: %s
Learning Objectives: %s
Difficulty: %s

Your output MUST be a JSON object that strictly follows the provided schema. Do not include any text, markdown, or code block fences outside of the JSON object itself.`, topic, objectives, difficulty)
}

func refineLessonPlanPrompt(planJSON, feedback string) string {
	return `Based on the provided evaluator feedback, generate an improved version of the original lesson plan.
Your output MUST be a JSON object that strictly follows the provided schema and incorporates the suggested changes. Do not include any text, markdown, or code block fences outside of the JSON object itself.

--- ORIGINAL LESSON PLAN (JSON) ---
` + planJSON + `

--- EVALUATOR FEEDBACK ---
` + feedback
}

// lessonPlanReviewPrompt is the CIDPP review sent when a plan is handed from the lab to the workshop.
func lessonPlanReviewPrompt(planJSON string) string {
	return "Please perform a comprehensive CIDPP analysis on the following lesson plan JSON object and provide structured feedback. Evaluate its clarity, interactivity, difficulty, practicality, and completeness.\n\n" + planJSON
}

func lessonPlanReviewDisplay(title string) string {
	return "Agent Evaluator, please review and provide a CIDPP-based analysis for the following lesson plan:\n\n**Title:** " + title
}

func evaluateAssetPrompt(asset *planning.EvaluableAsset, contentJSON string) string {
	return fmt.Sprintf(`As the Evaluator agent, please perform a comprehensive analysis of the following %s, titled "%s".
Your task is to identify potential areas of confusion for students, assess the clarity of the questions, and provide a numbered list of specific, actionable suggestions for improvement.

--- %s CONTENT (JSON) ---
%s`, asset.Type, asset.Title, strings.ToUpper(string(asset.Type)), contentJSON)
}

func optimizeAssetPrompt(asset *planning.EvaluableAsset, contentJSON, report string) string {
	return fmt.Sprintf(`As the Optimizer agent, your task is to refine the provided %s based on the evaluator's feedback.
Generate an improved version of the content. Your output MUST be a JSON object that strictly follows the provided schema, representing the new, optimized version. Do not include any text, markdown, or code block fences outside of the JSON object itself.

--- ORIGINAL %s (JSON) ---
%s

--- EVALUATOR FEEDBACK ---
%s`, asset.Type, strings.ToUpper(string(asset.Type)), contentJSON, report)
}

func observatoryPrompt(classJSON string) string {
	return `As the Analyst agent for the Student Observatory, your task is to analyze the following class-wide student performance data, which represents a snapshot of a progress-vs-score scatter plot. Identify and report on significant patterns, clusters, and outliers. Provide a bulleted list of 2-3 key, actionable insights for the professor.

--- CLASS DATA (JSON) ---
` + classJSON + `
--- END OF DATA ---

Your analysis should focus on:
1.  **Student Clusters:** Are there noticeable groups of students (e.g., high progress but low scores)?
2.  **Performance Trends:** What does the overall distribution suggest about the class's health?
3.  **Actionable Insights:** What are the most important takeaways for the professor?

Begin your analysis now.`
}

func bulletList(lines []string, empty string) string {
	if len(lines) == 0 {
		return empty
	}
	return strings.Join(lines, "\n")
}

func scoresSummary(st *roster.Student) string {
	lines := make([]string, 0, len(st.Scores))
	for _, s := range st.Scores {
		lines = append(lines, fmt.Sprintf("- %s: %d%%", s.Title, s.Score))
	}
	return bulletList(lines, "No scores available.")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func studentFeedbackPrompt(st *roster.Student) string {
	activities := make([]string, 0, len(st.Activities))
	for _, a := range st.Activities {
		activities = append(activities, fmt.Sprintf("- %q (%s)", a.Description, a.Timestamp))
	}
	alerts := make([]string, 0, len(st.Alerts))
	for _, a := range st.Alerts {
		alerts = append(alerts, fmt.Sprintf("- [%s] %s: %s", a.Level, a.Title, a.Description))
	}
	avg := "N/A"
	if st.AverageScore != nil {
		avg = fmt.Sprintf("%d", *st.AverageScore)
	}
	return fmt.Sprintf(`As the Analyst agent, analyze the student's performance data (progress, scores, activities, alerts) for the selected student. Provide a concise, constructive feedback summary to the professor with 'Key Observations' and 'Recommendations', highlighting strengths and suggesting areas for improvement.

--- STUDENT DATA ---
Student Name: %s
Overall Status: %s
Course Progress: %d%%
Average Score: %s%%
Last Activity: %s

Assignment Scores:
%s

Recent Activities:
%s

Active Alerts:
%s
--- END OF DATA ---

Begin your analysis.`, st.Name, st.Status, st.Progress, avg, orNA(st.LastActivity),
		scoresSummary(st),
		bulletList(activities, "No recent activities recorded."),
		bulletList(alerts, "No active alerts."))
}

func misconceptionsPrompt(st *roster.Student) string {
	past := make([]string, 0, len(st.Assignments))
	for _, a := range st.Assignments {
		if a.Status == roster.AssignmentPending {
			continue
		}
		past = append(past, fmt.Sprintf("- %s (Status: %s)", a.Title, a.Status))
	}
	return fmt.Sprintf(`As the Analyst agent, your task is to identify common errors and misconceptions for student '%s'. Analyze their assignment scores and past assignment statuses. For topics where they scored poorly or submitted late, infer potential misunderstandings. Provide a concise, bulleted list of these misconceptions, with brief examples if possible.

--- STUDENT PERFORMANCE DATA ---
Student Name: %s

Assignment Scores:
%s

Past Assignments:
%s
--- END OF DATA ---

Begin your analysis of common misconceptions.`, st.Name, st.Name, scoresSummary(st), bulletList(past, "No past assignments."))
}

func remedialWorkPrompt(st *roster.Student) string {
	history := make([]string, 0, len(st.Assignments))
	for _, a := range st.Assignments {
		history = append(history, fmt.Sprintf("- %s (Status: %s, Due: %s)", a.Title, a.Status, a.DueDate))
	}
	return fmt.Sprintf(`As the Analyst agent, your task is to recommend suitable remedial assignments for student '%s'.
Analyze their performance data below, focusing on low scores and late submissions, to identify areas of weakness.
Based on this analysis, suggest 2-3 specific assignment topics that would directly address these weaknesses.
For each recommendation, provide:
1. A clear, descriptive title for the assignment.
2. A brief rationale explaining which weakness it targets and why it's beneficial.

--- STUDENT PERFORMANCE DATA ---
Name: %s
Status: %s

Assignment Scores:
%s

Assignment History:
%s
--- END OF DATA ---

Begin your recommendations now.`, st.Name, st.Name, st.Status, scoresSummary(st), bulletList(history, "No assignments on record."))
}

func commonErrorsPrompt(topic string) string {
	return fmt.Sprintf(`As the Analyst agent, please provide a summary of the most common student errors and misconceptions for the topic: "%s". Base your analysis on recent assignment submissions. Structure your response with clear headings for each misconception and provide brief, anonymized code snippets or logical examples of the errors.`, topic)
}
