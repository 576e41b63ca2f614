package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"invoice-agent/internal/ai"
	"invoice-agent/internal/core"
)

const invoiceAgentInstructions = `You are an invoicing assistant for a team connected to QuickBooks Online.
You help the user inspect and manage their invoices and customers.
Rules:
1. Use the read tools to look up current data before answering; never guess invoice contents.
2. Invoices are identified by their doc number (the number shown to the user).
3. Dates are YYYY-MM-DD.
4. Mutating actions (create, update, delete, send) are proposed to the user for confirmation — call the matching write tool with complete arguments and stop.
5. If the user's request is ambiguous or missing critical information, ask a clarifying question instead of calling a write tool.`

// Chat tool argument structs. These are reflected into tool input schemas, so
// the jsonschema_description tags are what the model sees.

type chatItemArg struct {
	Description string  `json:"description,omitempty" jsonschema_description:"Line description shown on the invoice"`
	ProductName string  `json:"productName,omitempty" jsonschema_description:"Catalog product or service name; created in QuickBooks if missing"`
	Quantity    float64 `json:"quantity" jsonschema_description:"Quantity; use 1 if not stated"`
	Rate        float64 `json:"rate" jsonschema_description:"Unit price"`
}

type docNumberArg struct {
	DocNumber string `json:"docNumber" jsonschema_description:"The invoice's doc number as shown to the user"`
}

type createInvoiceArgs struct {
	CustomerName string        `json:"customerName" jsonschema_description:"Customer display name; created in QuickBooks if missing"`
	Items        []chatItemArg `json:"items" jsonschema_description:"Invoice lines"`
	IssueDate    string        `json:"issueDate,omitempty" jsonschema_description:"Issue date YYYY-MM-DD; omit for today"`
	DueDate      string        `json:"dueDate,omitempty" jsonschema_description:"Due date YYYY-MM-DD; omit if none"`
}

type updateInvoiceArgs struct {
	DocNumber    string         `json:"docNumber" jsonschema_description:"The invoice's doc number"`
	CustomerName *string        `json:"customerName,omitempty" jsonschema_description:"New customer display name; omit to keep"`
	Items        *[]chatItemArg `json:"items,omitempty" jsonschema_description:"Replacement for ALL invoice lines; omit to keep"`
	IssueDate    *string        `json:"issueDate,omitempty" jsonschema_description:"New issue date YYYY-MM-DD; omit to keep"`
	DueDate      *string        `json:"dueDate,omitempty" jsonschema_description:"New due date YYYY-MM-DD; omit to keep"`
}

type sendInvoiceArgs struct {
	DocNumber string `json:"docNumber" jsonschema_description:"The invoice's doc number"`
	Email     string `json:"email" jsonschema_description:"Recipient email address"`
}

// InterpretInvoiceAction routes natural language through the agentic loop.
func (s *appService) InterpretInvoiceAction(ctx context.Context, caller Caller, text string) (*ChatResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceRead); err != nil {
		return nil, err
	}

	reg := s.buildToolRegistry(caller)
	outcome, err := s.agent.Run(ctx, invoiceAgentInstructions, text, reg)
	if err != nil {
		return nil, err
	}

	if outcome.WriteTool != nil {
		if _, ok := reg.Get(outcome.WriteTool.Name); !ok {
			return nil, fmt.Errorf("agent proposed unknown tool %q", outcome.WriteTool.Name)
		}
		return &ChatResult{Proposed: &ProposedAction{
			ToolName: outcome.WriteTool.Name,
			Args:     outcome.WriteTool.Args,
			Summary:  summarizeWriteTool(outcome.WriteTool.Name, outcome.WriteTool.Args),
		}}, nil
	}
	return &ChatResult{Answer: outcome.Answer}, nil
}

// ExecuteWriteTool executes a confirmed write action. Permission checks run
// inside the invoked operation, so a stale confirmation cannot bypass the gate.
func (s *appService) ExecuteWriteTool(ctx context.Context, caller Caller, toolName string, args map[string]any) (string, error) {
	switch toolName {
	case "create_invoice":
		var a createInvoiceArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		result, err := s.CreateInvoice(ctx, caller, CreateInvoiceRequest{
			CustomerName: a.CustomerName,
			Items:        toItemInputs(a.Items),
			IssueDate:    a.IssueDate,
			DueDate:      a.DueDate,
		})
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case "update_invoice":
		var a updateInvoiceArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		req := UpdateInvoiceRequest{
			CustomerName: a.CustomerName,
			IssueDate:    a.IssueDate,
			DueDate:      a.DueDate,
		}
		if a.Items != nil {
			items := toItemInputs(*a.Items)
			req.Items = &items
		}
		result, err := s.UpdateInvoice(ctx, caller, a.DocNumber, req)
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case "delete_invoice":
		var a docNumberArg
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		result, err := s.DeleteInvoice(ctx, caller, a.DocNumber)
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case "send_invoice":
		var a sendInvoiceArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := s.SendInvoicePdf(ctx, caller, a.DocNumber, a.Email); err != nil {
			return "", err
		}
		return fmt.Sprintf(`{"sent":true,"docNumber":%q,"email":%q}`, a.DocNumber, a.Email), nil
	}
	return "", fmt.Errorf("unknown write tool %q", toolName)
}

// buildToolRegistry assembles the per-call registry. Read tool handlers close
// over the caller so every execution runs through the same permission gate and
// session path as the HTTP API.
func (s *appService) buildToolRegistry(caller Caller) *ai.ToolRegistry {
	reg := ai.NewToolRegistry()

	reg.Register(ai.ToolDefinition{
		Name:        "list_invoices",
		Description: "List all invoices with doc number, customer, amount, balance, status, and dates.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		IsReadTool:  true,
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			result, err := s.ListInvoices(ctx, caller)
			if err != nil {
				return "", err
			}
			return marshalResult(result)
		},
	})

	reg.Register(ai.ToolDefinition{
		Name:        "get_invoice",
		Description: "Fetch one invoice by doc number, including its line items.",
		InputSchema: ai.SchemaFor(docNumberArg{}),
		IsReadTool:  true,
		Handler: func(ctx context.Context, params map[string]any) (string, error) {
			var a docNumberArg
			if err := decodeArgs(params, &a); err != nil {
				return "", err
			}
			result, err := s.GetInvoice(ctx, caller, a.DocNumber)
			if errors.Is(err, core.ErrInvoiceNotFound) {
				return fmt.Sprintf(`{"found":false,"docNumber":%q}`, a.DocNumber), nil
			}
			if err != nil {
				return "", err
			}
			return marshalResult(result)
		},
	})

	reg.Register(ai.ToolDefinition{
		Name:        "list_customers",
		Description: "List the team's QuickBooks customers with id, name, company, and email.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		IsReadTool:  true,
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			result, err := s.ListCustomers(ctx, caller)
			if err != nil {
				return "", err
			}
			return marshalResult(result)
		},
	})

	reg.Register(ai.ToolDefinition{
		Name:        "create_invoice",
		Description: "Create a new invoice. Proposed to the user for confirmation before anything is sent to QuickBooks.",
		InputSchema: ai.SchemaFor(createInvoiceArgs{}),
	})
	reg.Register(ai.ToolDefinition{
		Name:        "update_invoice",
		Description: "Update fields of an existing invoice by doc number. Only provided fields change; items replace all lines.",
		InputSchema: ai.SchemaFor(updateInvoiceArgs{}),
	})
	reg.Register(ai.ToolDefinition{
		Name:        "delete_invoice",
		Description: "Delete (void) an invoice by doc number. Irreversible.",
		InputSchema: ai.SchemaFor(docNumberArg{}),
	})
	reg.Register(ai.ToolDefinition{
		Name:        "send_invoice",
		Description: "Email the invoice PDF to a recipient.",
		InputSchema: ai.SchemaFor(sendInvoiceArgs{}),
	})

	return reg
}

func toItemInputs(items []chatItemArg) []InvoiceItemInput {
	out := make([]InvoiceItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, InvoiceItemInput{
			Description: it.Description,
			ProductName: it.ProductName,
			Quantity:    decimal.NewFromFloat(it.Quantity),
			Rate:        decimal.NewFromFloat(it.Rate),
		})
	}
	return out
}

// decodeArgs converts a loosely-typed argument map into a typed struct via a
// JSON round trip.
func decodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode tool args: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode tool args: %w", err)
	}
	return nil
}

func marshalResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

// summarizeWriteTool renders a short human-readable confirmation line.
func summarizeWriteTool(toolName string, args map[string]any) string {
	switch toolName {
	case "create_invoice":
		return fmt.Sprintf("Create an invoice for %v", args["customerName"])
	case "update_invoice":
		return fmt.Sprintf("Update invoice %v", args["docNumber"])
	case "delete_invoice":
		return fmt.Sprintf("Delete invoice %v (irreversible)", args["docNumber"])
	case "send_invoice":
		return fmt.Sprintf("Send invoice %v to %v", args["docNumber"], args["email"])
	}
	return toolName
}
