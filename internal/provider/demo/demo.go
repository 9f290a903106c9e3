// Package demo serves canned assistant responses when no real provider
// credential is configured. Responses are picked by keyword so the rest of
// the stack can be exercised end to end without an upstream account.
package demo

import (
	"context"
	"strings"

	"github.com/maildash/assistant-gateway/internal/domain"
)

const Model = "demo-gpt-4"

type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Kind() string {
	return domain.ProviderDemo
}

// Complete never fails and never calls the network. Token usage is a rough
// length/4 estimate so downstream accounting sees plausible numbers.
func (a *Adapter) Complete(ctx context.Context, messages []domain.Message) (*domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userMessage := lastUserMessage(messages)
	content := respond(strings.ToLower(strings.TrimSpace(userMessage)))

	promptTokens := len(userMessage)/4 + 50
	completionTokens := len(content) / 4

	return &domain.Response{
		Content: content,
		Usage: &domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		Model:    Model,
		Provider: a.Kind(),
	}, nil
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func respond(message string) string {
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(message, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("email", "inbox", "message"):
		switch {
		case contains("summarize", "summary"):
			return emailSummary
		case contains("reply", "respond"):
			return emailReply
		case contains("organize", "sort"):
			return emailOrganize
		default:
			return emailGeneral
		}
	case contains("meeting", "schedule", "calendar"):
		switch {
		case contains("schedule", "book"):
			return calendarSchedule
		case contains("reschedule", "move"):
			return calendarReschedule
		case contains("agenda", "today", "tomorrow"):
			return calendarAgenda
		default:
			return calendarGeneral
		}
	case contains("task", "todo", "productivity"):
		switch {
		case contains("task", "todo"):
			return taskOverview
		case contains("productivity", "focus"):
			return productivityTips
		default:
			return taskGeneral
		}
	case contains("hello", "hi", "hey"):
		return greeting
	case contains("help", "what can you do"):
		return capabilities
	default:
		return fallback
	}
}

const emailSummary = `## Email Summary

Here's what I found in your inbox:

**High Priority (3 emails):**
- Sarah Johnson - Project deadline update (urgent)
- Marketing Team - Q4 campaign review needed
- IT Support - Security update required by Friday

**Regular Messages (7 emails):**
- Meeting confirmations and calendar updates
- Newsletter subscriptions
- Team announcements

**Recommendation:** I suggest tackling the high-priority emails first. Would you like me to help you draft responses?`

const emailReply = `## Email Response Assistant

I can help you craft a professional response! Here are your options:

**Quick Templates:**
- "Thanks for the update, I'll review and respond by [time]"
- "Received, let me check with the team and get back to you"
- "Appreciate the heads up, I'll prioritize this today"

**Custom Response:** I can help you write a personalized reply based on the context.

What type of response would work best for your situation?`

const emailOrganize = `## Inbox Organization Strategy

Let me help you organize your emails more effectively:

**Suggested Actions:**
- Create folders: Projects, Clients, Admin, Reading List
- Set up rules for automatic sorting by sender/subject
- Archive emails older than 30 days (if not needed)
- Unsubscribe from unused newsletters

**Priority System:**
- Red flag: Urgent responses needed
- Yellow flag: Important but not urgent
- No flag: FYI or low priority

Would you like me to walk you through setting up any of these systems?`

const emailGeneral = `## Email Management Help

I'm here to help with your email productivity! I can assist with:

**Email Tasks:**
- Summarizing your inbox and highlighting priorities
- Drafting professional responses and templates
- Creating organization systems and rules
- Managing email overload and achieving inbox zero

**Quick Tip:** Try the "2-minute rule" - if an email takes less than 2 minutes to handle, do it immediately rather than marking it for later.

What specific email challenge can I help you with today?`

const calendarSchedule = `## Meeting Scheduling Assistant

I'd be happy to help you find the perfect meeting time!

**Available Slots Today:**
- 2:00 PM - 3:00 PM (1 hour available)
- 4:30 PM - 5:30 PM (1 hour available)

**Tomorrow's Options:**
- 10:00 AM - 11:30 AM (1.5 hours available)
- 1:00 PM - 2:30 PM (1.5 hours available)
- 3:30 PM - 5:00 PM (1.5 hours available)

**To help you better:**
- Who needs to attend this meeting?
- How long do you expect it to last?
- Is this in-person, video call, or phone?
- What's the main topic or agenda?`

const calendarReschedule = `## Meeting Rescheduling Help

I can help you reschedule that meeting smoothly:

**Rescheduling Steps:**
1. Check availability for all attendees
2. Propose 2-3 alternative times to give options
3. Send a polite reschedule request with a brief explanation
4. Update the calendar once confirmed

**Sample Message:**
"Hi [Name], I need to reschedule our meeting due to [brief reason]. Here are some alternative times that work for me: [options]. Please let me know what works best for you."

Which meeting needs to be rescheduled, and do you have preferred alternative times?`

const calendarAgenda = `## Your Schedule Overview

Here's your agenda for today:

**Morning (9:00 AM - 12:00 PM):**
- 9:00 AM - Team Standup (30 min)
- 10:30 AM - Project Review with Sarah (1 hour)
- 11:45 AM - Buffer time for email catch-up

**Afternoon (1:00 PM - 6:00 PM):**
- 1:00 PM - Lunch meeting with client (1.5 hours)
- 3:00 PM - Strategy planning session (1 hour)
- 4:30 PM - One-on-one with manager (30 min)
- 5:00 PM - Wrap-up and tomorrow's prep

**Prep Reminders:**
- Review project docs before the 10:30 meeting
- Prepare talking points for the strategy session

Would you like me to help you prepare for any specific meeting?`

const calendarGeneral = `## Calendar Management Assistant

I can help you optimize your schedule and manage meetings effectively!

**Calendar Services:**
- Finding optimal meeting times for multiple attendees
- Rescheduling conflicts and managing changes
- Creating productive meeting agendas
- Time-blocking for focused work periods
- Balancing meetings with deep work time

**Productivity Tips:**
- Schedule meetings in blocks to preserve focus time
- Use 25 or 50-minute meetings to allow transition time
- Block 2-hour chunks for important project work

What aspect of your calendar would you like to improve?`

const taskOverview = `## Task Management Overview

Here's your current task status:

**High Priority (Due Soon):**
- Complete quarterly report (due tomorrow)
- Review contract terms (due this week)
- Prepare presentation slides for Friday

**Medium Priority:**
- Update project timeline
- Schedule team one-on-ones
- Organize digital files and folders

**Recently Completed:**
- Finished client proposal (yesterday)
- Updated team on project status
- Completed expense reports

**Recommendation:** Focus on the quarterly report first - it's your biggest priority and will take about 2-3 hours of focused work.

Which task would you like help breaking down or prioritizing?`

const productivityTips = `## Productivity Insights & Tips

Here's how to boost your productivity today:

**Your Productivity Patterns:**
- Peak focus time: 9:00 AM - 11:00 AM
- Energy dip: 2:00 PM - 3:00 PM (perfect for admin tasks)
- Second wind: 4:00 PM - 6:00 PM

**Optimization Strategies:**
- Time-blocking: reserve your peak hours for important work
- Batch processing: group similar tasks (emails, calls, admin)
- Pomodoro Technique: 25-minute focused work sessions
- Two-minute rule: handle quick tasks immediately

**Today's Action Plan:**
1. Tackle your most important task during peak hours (9-11 AM)
2. Batch process emails at 11 AM and 4 PM
3. Use the afternoon dip for routine administrative work

What productivity challenge would you like to work on?`

const taskGeneral = `## Task & Productivity Assistant

I'm here to help you work smarter and accomplish more!

**Task Management:**
- Prioritizing your to-do list using proven frameworks
- Breaking down large projects into manageable steps
- Setting realistic deadlines and milestones
- Tracking progress and celebrating wins

**Productivity Optimization:**
- Identifying your peak performance hours
- Minimizing distractions and interruptions
- Creating efficient workflows and routines
- Balancing urgent vs. important work

What aspect of your productivity would you like to improve first?`

const greeting = `## Welcome to Your AI Assistant!

I'm here to help you master your email and calendar productivity.

**What I Can Help With:**

**Email Management:**
- Organize and prioritize your inbox
- Draft professional responses
- Create email templates and rules

**Calendar & Meetings:**
- Find optimal meeting times
- Manage scheduling conflicts
- Balance meetings with focus time

**Task & Productivity:**
- Prioritize your to-do list
- Break down complex projects
- Optimize your daily workflow

**Quick Start Ideas:**
- "Help me organize my inbox"
- "Find time for a team meeting"
- "Show me my tasks for today"
- "How can I be more productive?"

What would you like to work on first?`

const capabilities = `## How I Can Assist You

I'm your dedicated productivity assistant!

**Core Capabilities:**

**Email Excellence:**
- Smart inbox organization and filtering
- Professional email drafting and templates
- Response prioritization and time management

**Calendar Mastery:**
- Intelligent meeting scheduling
- Conflict resolution and rescheduling
- Time-blocking for maximum productivity

**Task Optimization:**
- Priority-based task management
- Project breakdown and milestone tracking
- Goal setting and achievement strategies

**Try asking me:**
- "Summarize my important emails"
- "When can I schedule a 1-hour meeting?"
- "Help me prioritize my tasks"

What specific challenge can I help you solve today?`

const fallback = `## I'm Here to Help!

I didn't quite catch what you're looking for, but I'm ready to assist with your productivity needs!

**I Specialize In:**

**Email Management:**
- "Help me organize my inbox"
- "What emails need my attention?"

**Calendar & Scheduling:**
- "Find time for a meeting with [person]"
- "What's my schedule for tomorrow?"

**Task & Productivity:**
- "Show me my pending tasks"
- "Help me prioritize my work"

Could you rephrase your question or try one of these examples? I'm here to make your workday more efficient and organized!`
