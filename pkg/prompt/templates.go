package prompt

const templateText = `
{{define "optimize_resume"}}
TASK: Optimise the résumé below for the position "{{.JobTitle | orNone}}".

JOB DESCRIPTION:
{{.JobDescription | orNone}}

RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. Tailor the résumé to the position.
2. Work in relevant keywords from the job description where the résumé supports them.
3. Improve structure and formatting.
4. Keep every fact true to the original. Do not add employers, dates, titles or skills.

FORMAT:
Use a "## " header for every section (for example "## Summary", "## Experience", "## Skills").
Return only the optimised résumé, with no commentary.
{{end}}

{{define "analyze_resume"}}
TASK: Analyse the résumé below for the position "{{.JobTitle | orNone}}" and score it.

JOB DESCRIPTION:
{{.JobDescription | orNone}}

RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. Score the résumé from 1 to 100.
2. List its strengths.
3. List the areas to improve.
4. Suggest concrete changes.
5. Judge the fit for the position.

FORMAT:
SCORE: [number]/100

STRENGTHS:
- [point]

AREAS TO IMPROVE:
- [point]

RECOMMENDATIONS:
- [recommendation]
{{end}}

{{define "cover_letter"}}
TASK: Write a professional cover letter based on the résumé below.

POSITION: {{.JobTitle}}
COMPANY: {{.CompanyName | orNone}}

JOB DESCRIPTION:
{{.JobDescription | orNone}}

RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. Match the letter to the position and the company.
2. Highlight the strongest qualifications that appear in the résumé.
3. Use a professional tone, three to four paragraphs.
4. Do not claim experience the résumé does not show.

FORMAT:
Return a JSON object and nothing else:
{"subject": "<email subject line>", "letter": "<full letter text>"}
{{end}}

{{define "interview_questions"}}
TASK: Prepare the candidate for an interview for the position "{{.JobTitle | orNone}}".

JOB DESCRIPTION:
{{.JobDescription | orNone}}

RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. List 8 to 12 questions the interviewer is likely to ask.
2. Mix technical, behavioural and role-specific questions.
3. For each question give a short tip that draws only on the résumé.

FORMAT:
Return a JSON object and nothing else:
{"questions": [{"question": "...", "category": "technical|behavioral|role", "tip": "..."}]}
{{end}}

{{define "skills_gap"}}
TASK: Compare the résumé below with the requirements of the position "{{.JobTitle | orNone}}".

JOB DESCRIPTION:
{{.JobDescription | orNone}}

RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. List the required skills the résumé demonstrates.
2. List the required skills the résumé does not demonstrate.
3. Recommend concrete steps to close each gap.
4. Estimate the overall match as a percentage.

FORMAT:
Return a JSON object and nothing else:
{"matched": ["..."], "missing": ["..."], "recommendations": ["..."], "match_percent": 0}
{{end}}

{{define "grammar_check"}}
TASK: Check the grammar, style and language of the résumé below.
{{if .JobTitle}}
TARGET POSITION: {{.JobTitle}}
{{end}}{{if .JobDescription}}
JOB DESCRIPTION:
{{.JobDescription}}
{{end}}
RÉSUMÉ:
{{.ResumeText}}

INSTRUCTIONS:
1. Find grammar and spelling mistakes.
2. Check that tenses are used consistently.
3. Judge how professional the language is.
4. Judge how clearly each point reads.
5. Check that the résumé follows common résumé conventions.
Quote the original text exactly. Do not rewrite facts.

FORMAT:
Return a JSON object and nothing else:
{"grammar_score": 0, "style_score": 0, "professionalism_score": 0,
 "errors": [{"type": "grammar|style", "text": "...", "correction": "...", "section": "..."}],
 "style_suggestions": ["..."], "overall_quality": "...", "summary": "..."}
Scores are whole numbers from 1 to 10.
{{end}}

{{define "generic"}}
TASK: Review the résumé below{{if .JobTitle}} for the position "{{.JobTitle}}"{{end}} and suggest improvements.

{{if .JobDescription}}JOB DESCRIPTION:
{{.JobDescription}}

{{end}}RÉSUMÉ:
{{.ResumeText}}
{{end}}
`
