package analysis

const systemPrompt = `You are a mentor for software developers. You read GitHub activity and learning goals
and give specific, encouraging, practical advice.
Always answer with a single JSON object that follows the requested format exactly.
Do not wrap the JSON in prose.`

const devProfilePrompt = `Analyze this developer's complete profile and provide personalized learning insights:

Developer: %s
Total Repositories: %d
Total Commits: %d

Programming Languages Used: %s

Repository Names: %s

Repositories:
%s

Recent Commit Messages:
%s

README Sample:
%s

Provide a comprehensive analysis in this exact JSON format:
{
    "summary": "2-3 sentence overview of their current development level",
    "skill_level": "beginner/intermediate/advanced",
    "top_languages": ["lang1", "lang2", "lang3"],
    "strengths": ["strength1", "strength2", "strength3"],
    "improvement_areas": ["area1", "area2", "area3"],
    "recommended_goals": [
        {"title": "Goal 1", "category": "Category", "description": "Description", "timeline": "2-4 weeks"},
        {"title": "Goal 2", "category": "Category", "description": "Description", "timeline": "1-2 months"}
    ],
    "learning_path": ["step1", "step2", "step3", "step4"],
    "estimated_hours": 40,
    "motivation_message": "Encouraging message for the developer",
    "project_complexity": {
        "overall": 0-100,
        "technicalDebt": 0-100,
        "architecture": 0-100,
        "scalability": 0-100,
        "reasoning": "One sentence explaining the scores"
    },
    "coding_patterns": {
        "consistency": 0-100,
        "velocity": 0-100,
        "quality": 0-100,
        "patterns": ["pattern1", "pattern2"],
        "confidence": 0.0-1.0
    }
}

skill_level must be one of beginner, intermediate or advanced. estimated_hours is an integer.
Make it personal, actionable, and motivating based on their actual coding activity.`

const repoPrompt = `Analyze this GitHub repository and provide actionable insights:

Repository: %s
Owner: %s
Stars: %d
Forks: %d
Topics: %s
Size: %d KB
Languages: %s
README Sample: %s
Recent Commits: %s

File Tree:
%s

Code Sample:
%s

Respond in this JSON format:
{
    "summary": "Short summary of repo quality and focus",
    "strengths": ["strength1", "strength2"],
    "improvement_areas": ["area1", "area2"],
    "code_quality_score": 0-100,
    "popularity_score": 0-100,
    "documentation_score": 0-100,
    "recommendations": ["rec1", "rec2"]
}

All scores are integers between 0 and 100.`

const goalPrompt = `You are a learning mentor for developers. Analyze this learning goal:

Goal: %s
Category: %s
Current Progress: %s
Difficulty Level: %d/10

Previous Conversation:
%s

Provide helpful suggestions in this JSON format:
{
    "suggestions": ["suggestion1", "suggestion2", "suggestion3"],
    "next_steps": ["step1", "step2", "step3"],
    "estimated_time": "X hours/days/weeks",
    "resources": ["resource1", "resource2", "resource3"]
}

Keep suggestions practical and actionable for a developer.`

const githubInsightsPrompt = `Analyze this developer's GitHub profile and provide learning insights:

Username: %s

Repository Languages: %s

Repository Names: %s

Recent Commit Messages:
%s

README Content Sample:
%s

Based on this data, provide analysis in this JSON format:
{
    "skill_analysis": {
        "primary_languages": ["lang1", "lang2"],
        "experience_level": "beginner/intermediate/advanced",
        "strengths": ["strength1", "strength2"],
        "areas_to_improve": ["area1", "area2"]
    },
    "learning_suggestions": ["suggestion1", "suggestion2", "suggestion3"],
    "project_insights": ["insight1", "insight2", "insight3"],
    "recommended_goals": [
        {"title": "Goal 1", "category": "Category", "description": "Description", "priority": "high/medium/low"},
        {"title": "Goal 2", "category": "Category", "description": "Description", "priority": "high/medium/low"}
    ],
    "coding_patterns": {
        "commit_frequency": "high/medium/low",
        "project_variety": "diverse/focused/limited",
        "code_quality_indicators": ["indicator1", "indicator2"]
    }
}

Keep insights practical and actionable for a developer's learning journey.`
