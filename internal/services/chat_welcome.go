package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
)

const welcomeEvaluatorReport = `Understood, Professor. I have analyzed the performance data and student feedback for the 'Hash Tables' lesson. Here is the effectiveness report:

**Strong Points:**

*   **Collision Comprehension (CIDPP-C):** 85% of students demonstrated a solid understanding of collision concepts and resolution methods (chaining, open addressing).
*   **Practical Application (CIDPP-P):** 70% of students correctly applied Hash Tables in practice problems, especially in rapid search scenarios.

**Weak Points:**

*   **Complexity Analysis (CIDPP-C):** Only 45% of students could correctly explain the worst-case and average-case complexity of Hash Table operations. There appears to be persistent confusion between O(1) and O(N) scenarios.
*   **Hash Function Selection (CIDPP-D):** 30% of students struggled to choose an appropriate hash function for different data types, indicating a lack of diversity in the examples or explanations.

**Recommendation:**

I suggest tasking the **Optimizer Agent** to revise the complexity section and add more practical examples on selecting hash functions. The **Analyst Agent** could also identify the most common errors related to complexity to reinforce these explanations.`

// welcomeMessages seeds a new workshop session.
func welcomeMessages(now time.Time) []collab.ChatMessage {
	at := func(minutesAgo int) time.Time { return now.Add(-time.Duration(minutesAgo) * time.Minute) }
	msgs := []collab.ChatMessage{
		agentMessage(collab.AgentAnalyst, "Welcome to the Multi-Agent Collaboration Workshop, Professor. I am the Analyst. You can ask me to identify student learning patterns or common errors. The Evaluator can assess lesson quality, and the Optimizer can suggest content improvements. How can we assist you today?", at(6)),
		{
			ID:        uuid.NewString(),
			Sender:    collab.SenderUser,
			Kind:      collab.KindPlainText,
			Text:      "Agent Evaluator, how was the effectiveness of the Hash Tables lesson that was taught last week? I need a summary of the strengths and weaknesses based on student performance.",
			Timestamp: at(5),
		},
		agentMessage(collab.AgentEvaluator, welcomeEvaluatorReport, at(3)),
		agentMessage(collab.AgentAnalyst, "Professor, you can now provide feedback on our responses using the thumbs up/down icons. This helps me analyze our performance. At any time, ask me to **'review agent feedback'** to get a summary and suggestions for improving our system instructions.", at(1)),
	}
	return msgs
}
