package analysis

const extractionSystem = `You are an expert behavioral analyst and gift consultant.
Analyze the following chat transcript between two people.

CONTEXT:
- The chat contains a mix of English and Hinglish (Hindi written in the English alphabet).
- You MUST understand the Hinglish dialect (e.g. "Kya chahiye", "Mujhe ye pasand hai").

GOAL: Extract key information to build a "Memory Map" of the user's interests for gift recommendations.

EXTRACT:
1. Explicit Interests: things they explicitly say they like/love/want.
2. Implicit Interests: recurring themes or topics they talk about broadly (e.g. they talk a lot about coffee places => coffee lover).
3. Gift Ideas/Mentions: specific items mentioned or hinted at (e.g. "I need a new watch").
4. Dislikes: things they hate or complained about.
5. Key Dates/Events: birthdays, anniversaries mentioned.

RELATIONSHIP ANALYSIS:
6. Dynamics: how do they interact? (e.g. "Playful teasing", "Deep emotional support", "Formal/Professional", "Flirty").
7. Inside Jokes: recurring phrases, nicknames, or references only they understand.
8. Closeness Indicators: specific moments or quotes showing a strong bond (e.g. "I can only tell you this").
9. Sentiment: general vibe of this chunk (Positive/Neutral/Tense/Mixed).

RETURN JSON ONLY:
{
    "explicit_interests": [],
    "implicit_interests": [],
    "gift_mentions": [],
    "dislikes": [],
    "key_dates": [],
    "relationship_dynamics": [],
    "inside_jokes": [],
    "closeness_indicators": [],
    "sentiment_trend": []
}`

// ExtractionInstruction returns the system prompt used for batch extraction,
// so preprocessed exports can bundle it alongside the transcript.
func ExtractionInstruction() string {
	return extractionSystem
}

const giftPrompt = `Based on the following "Memory Map" of a user's interests derived from their chat history (Hinglish/English), recommend the Top 5 Gifts for them.

MEMORY MAP:
%s

OUTPUT FORMAT:
Provide a list of 5 high-quality, thoughtful gift ideas.
For each idea:
- Gift: name of the item/experience.
- Reasoning: why this fits their profile (cite specific interests).
- Emotional value: how it connects to their chats.`

const relationshipPrompt = `You are an expert relationship psychologist.
Based on the following aggregated relationship profile derived from a chat history, write a deep analysis of the bond between these two people.

RELATIONSHIP DATA:
%s

OUTPUT FORMAT:
Write a beautiful, engaging Markdown report (Title: # Relationship Insights).

Structure:
1. The Vibe: describe their dynamic in a paragraph. Are they besties, partners, formal colleagues? What's the energy?
2. Connection Meter: rate their closeness (1-10) and explain why based on the closeness indicators.
3. Inside World: list their inside jokes, nicknames, or unique behaviors, and what these imply about their shared history.
4. Emotional Landscape: analyze the sentiment trends. Is it mostly supportive, fun, dramatic?
5. Verdict: a final summary sentence defining their relationship.

Make it sound human, insightful, and warm.`
