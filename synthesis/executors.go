// Copyright 2025 Seamark Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Endpoints configures the business systems behind the tool executors.
type Endpoints struct {
	// FormOrigin is the base URL of the form submission API.
	FormOrigin string
	// LeadMagnetFormID is the form receiving lead magnet email requests.
	LeadMagnetFormID int
	// ContactFormID is the form receiving business inquiries.
	ContactFormID int
	// SchedulerOrigin is the base URL of the meeting scheduler API.
	SchedulerOrigin string
}

// toolHTTPTimeout bounds every executor call. Stalled business systems must
// not hold a synthesis round open.
const toolHTTPTimeout = 30 * time.Second

// DefaultToolSet wires the four production executors against the given
// endpoints with a shared timeout-bounded HTTP client.
func DefaultToolSet(endpoints Endpoints) *ToolSet {
	client := &http.Client{Timeout: toolHTTPTimeout}
	logger := slog.Default().With("component", "tools")

	return NewToolSet(
		&leadMagnetExecutor{endpoints: endpoints, client: client, logger: logger},
		&contactFormExecutor{endpoints: endpoints, client: client, logger: logger},
		&listSlotsExecutor{endpoints: endpoints, client: client, logger: logger},
		&bookSlotExecutor{endpoints: endpoints, client: client, logger: logger},
	)
}

// leadMagnetExecutor emails the migration kit to a captured lead.
type leadMagnetExecutor struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

func (e *leadMagnetExecutor) Name() string { return ToolSendLeadMagnetEmail }

func (e *leadMagnetExecutor) Definition() llms.Tool {
	return functionTool(ToolSendLeadMagnetEmail,
		"Send the migration kit to the user by email. Whenever the user talks about migration services, offer to send the kit. Ask for a business email address.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "Business email address of the person.",
				},
				"firstName": map[string]any{
					"type":        "string",
					"description": "First name of the person.",
				},
				"lastName": map[string]any{
					"type":        "string",
					"description": "Last name of the person.",
				},
			},
			"required": []string{"email", "firstName"},
		})
}

func (e *leadMagnetExecutor) Execute(ctx context.Context, args string, extra ExtraArgs) string {
	var in struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil || in.Email == "" {
		e.logger.Warn("lead magnet arguments invalid", "error", err)
		return toolErrorResponse
	}

	target := fmt.Sprintf("%s/forms/%d/submissions", e.endpoints.FormOrigin, e.endpoints.LeadMagnetFormID)
	payload := map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
	}
	if !postJSON(ctx, e.client, e.logger, target, payload) {
		return toolErrorResponse
	}
	return `{"sent":true}`
}

// contactFormExecutor submits a business inquiry with the conversation
// transcript attached for the sales team.
type contactFormExecutor struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

func (e *contactFormExecutor) Name() string { return ToolSubmitContactForm }

func (e *contactFormExecutor) Definition() llms.Tool {
	return functionTool(ToolSubmitContactForm,
		"Submit a business inquiry form on behalf of the user. Ask one parameter at a time; ask for full name and email after the user has provided other details. Only fill the form for business related queries, never for career related queries. If the user is unsure about the budget, select \"Undecided/Not Applicable\" without asking. Ask for the project budget last.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fullName": map[string]any{
					"type":        "string",
					"description": "Full name of the person.",
				},
				"emailAddress": map[string]any{
					"type":        "string",
					"description": "Email address of the person.",
				},
				"organisationWebsite": map[string]any{
					"type":        "string",
					"description": "Website of the organisation. Optional, but explicitly ask if the user can provide it.",
				},
				"projectBudget": map[string]any{
					"type":        "string",
					"description": "Expected budget for the project. Show the user all available values.",
					"enum": []string{
						"USD 20,000 - 50,000",
						"USD 50,000 - 100,000",
						"USD 100,000 - 250,000",
						"Above USD 250,000",
						"Undecided/Not Applicable",
					},
				},
				"details": map[string]any{
					"type":        "string",
					"description": "Additional details or comments from the user. Do not force the user to provide this.",
				},
			},
			"required": []string{"fullName", "emailAddress", "projectBudget", "details"},
		})
}

func (e *contactFormExecutor) Execute(ctx context.Context, args string, extra ExtraArgs) string {
	var in struct {
		FullName            string `json:"fullName"`
		EmailAddress        string `json:"emailAddress"`
		OrganisationWebsite string `json:"organisationWebsite"`
		ProjectBudget       string `json:"projectBudget"`
		Details             string `json:"details"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil || in.EmailAddress == "" {
		e.logger.Warn("contact form arguments invalid", "error", err)
		return toolErrorResponse
	}

	details := in.Details
	if extra.Transcript != "" {
		details = fmt.Sprintf("%s\n\nConversation transcript:\n%s", details, extra.Transcript)
	}

	target := fmt.Sprintf("%s/forms/%d/submissions", e.endpoints.FormOrigin, e.endpoints.ContactFormID)
	payload := map[string]string{
		"full_name":      in.FullName,
		"email":          in.EmailAddress,
		"website":        in.OrganisationWebsite,
		"project_budget": in.ProjectBudget,
		"details":        details,
	}
	if !postJSON(ctx, e.client, e.logger, target, payload) {
		return toolErrorResponse
	}
	return `{"submitted":true}`
}

// listSlotsExecutor fetches bookable meeting slots from the scheduler.
type listSlotsExecutor struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

func (e *listSlotsExecutor) Name() string { return ToolListMeetingSlots }

func (e *listSlotsExecutor) Definition() llms.Tool {
	return functionTool(ToolListMeetingSlots,
		"Fetch available meeting time slots. By default, shows slots for the next business days starting two days ahead. Only show business days. Only suggest slots for business related queries; do not entertain career related queries. Always ask the user if they have a preferred date before fetching. Present slots grouped by day in Markdown with times in am/pm format.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_date": map[string]any{
					"type":        "string",
					"description": "Optional start date in YYYY-MM-DD format. Only pass this if the user explicitly mentions a preferred date; convert human-readable dates yourself.",
					"pattern":     `^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`,
				},
			},
		})
}

func (e *listSlotsExecutor) Execute(ctx context.Context, args string, extra ExtraArgs) string {
	var in struct {
		StartDate string `json:"start_date"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		e.logger.Warn("list slots arguments invalid", "error", err)
		return toolErrorResponse
	}

	if in.StartDate != "" {
		start, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return toolErrorResponse
		}
		if start.After(time.Now().AddDate(0, 1, 0)) {
			return `{"error":"booking date cannot be more than one month from now"}`
		}
	}

	query := url.Values{}
	query.Set("timezone", extra.Timezone)
	if in.StartDate != "" {
		query.Set("start_date", in.StartDate)
	}
	target := fmt.Sprintf("%s/slots?%s", e.endpoints.SchedulerOrigin, query.Encode())

	body, ok := getJSON(ctx, e.client, e.logger, target)
	if !ok {
		return toolErrorResponse
	}
	return body
}

// bookSlotExecutor books one of the listed slots.
type bookSlotExecutor struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

func (e *bookSlotExecutor) Name() string { return ToolBookMeetingSlot }

func (e *bookSlotExecutor) Definition() llms.Tool {
	return functionTool(ToolBookMeetingSlot,
		"Book a meeting from available time slots. Always show slots from list_meeting_slots before booking. Extract date and time from the user's selected slot; never ask the user to confirm the year. Only book for business related queries.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Date in YYYY-MM-DD format.",
					"pattern":     `^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`,
				},
				"time": map[string]any{
					"type":        "string",
					"description": "Time of the slot in HH:mm format.",
					"pattern":     `^([01]\d|2[0-3]):[0-5]\d$`,
				},
				"email": map[string]any{
					"type":        "string",
					"description": "Email address of the user, to send an invite.",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Name of the user.",
				},
			},
			"required": []string{"date", "time", "email", "name"},
		})
}

func (e *bookSlotExecutor) Execute(ctx context.Context, args string, extra ExtraArgs) string {
	var in struct {
		Date  string `json:"date"`
		Time  string `json:"time"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil || in.Email == "" || in.Date == "" {
		e.logger.Warn("book slot arguments invalid", "error", err)
		return toolErrorResponse
	}

	payload := map[string]string{
		"date":          in.Date,
		"start_time":    in.Time,
		"user_name":     in.Name,
		"user_email":    in.Email,
		"user_timezone": extra.Timezone,
	}
	target := fmt.Sprintf("%s/book", e.endpoints.SchedulerOrigin)
	if !postJSON(ctx, e.client, e.logger, target, payload) {
		return toolErrorResponse
	}
	return `{"booked":true}`
}

func postJSON(ctx context.Context, client *http.Client, logger *slog.Logger, target string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("tool payload marshal failed", "url", target, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		logger.Error("tool request build failed", "url", target, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("tool request failed", "url", target, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("tool request rejected", "url", target, "status", resp.StatusCode)
		return false
	}
	return true
}

func getJSON(ctx context.Context, client *http.Client, logger *slog.Logger, target string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logger.Error("tool request build failed", "url", target, "error", err)
		return "", false
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("tool request failed", "url", target, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("tool request rejected", "url", target, "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logger.Warn("tool response read failed", "url", target, "error", err)
		return "", false
	}
	return string(body), true
}
