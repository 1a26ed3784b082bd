package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Definitions returns the static tool catalog. Tool names, argument
// names and enumerations are the wire contract and must stay stable.
func (t *Tools) Definitions() []mcp.Tool {
	return []mcp.Tool{
		// Document processing
		{
			Name:        "upload_document",
			Description: "Upload a document file to the server for processing. Supports PDF, Office documents (DOC/DOCX/PPT/PPTX/XLS/XLSX), images, and text files.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the document file to upload",
					},
					"doc_id": map[string]interface{}{
						"type":        "string",
						"description": "Optional custom document ID. If not provided, will be auto-generated.",
					},
				},
				Required: []string{"file_path"},
			},
		},
		{
			Name:        "process_document",
			Description: "Process an uploaded document with RAG-Anything. Extracts text, images, tables, and equations to build a searchable knowledge base.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"doc_id": map[string]interface{}{
						"type":        "string",
						"description": "Document identifier from upload_document",
					},
					"parser": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"mineru", "docling"},
						"description": "Parser to use for document processing. Default: mineru",
					},
					"parse_method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"auto", "ocr", "txt"},
						"description": "Parsing method. auto: automatic selection, ocr: force OCR, txt: text only. Default: auto",
					},
				},
				Required: []string{"doc_id"},
			},
		},
		{
			Name:        "batch_process_documents",
			Description: "Process multiple documents in batch for efficiency.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"file_paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "List of file paths to process",
					},
					"max_concurrent": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of files to process concurrently",
					},
				},
				Required: []string{"file_paths"},
			},
		},
		// Query tools
		{
			Name:        "query_text",
			Description: "Query the RAG system with plain text. Retrieves relevant information from processed documents using intelligent search.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The question or query text",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"hybrid", "local", "global", "naive"},
						"description": "Query mode. hybrid: combines local and global search (recommended), local: entity-based search, global: community-based search, naive: vector search only. Default: hybrid",
					},
					"top_k": map[string]interface{}{
						"type":        "integer",
						"description": "Number of top results to return",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "query_multimodal",
			Description: "Query with multimodal content such as images, tables, or equations. Allows you to ask questions about or compare content with the knowledge base.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The question or query text",
					},
					"multimodal_content": map[string]interface{}{
						"type":        "array",
						"description": "List of multimodal content items (images, tables, equations)",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"type": map[string]interface{}{
									"type": "string",
									"enum": []string{"image", "table", "equation"},
								},
								"img_path":         map[string]interface{}{"type": "string"},
								"image_caption":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"table_data":       map[string]interface{}{"type": "string"},
								"table_caption":    map[string]interface{}{"type": "string"},
								"latex":            map[string]interface{}{"type": "string"},
								"equation_caption": map[string]interface{}{"type": "string"},
							},
						},
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"hybrid", "local", "global", "naive"},
						"description": "Query mode. Default: hybrid",
					},
				},
				Required: []string{"query", "multimodal_content"},
			},
		},
		// Management tools
		{
			Name:        "list_documents",
			Description: "List all uploaded and processed documents with their metadata.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{},
			},
		},
		{
			Name:        "get_document_info",
			Description: "Get detailed information about a specific document.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"doc_id": map[string]interface{}{
						"type":        "string",
						"description": "Document identifier",
					},
				},
				Required: []string{"doc_id"},
			},
		},
		{
			Name:        "delete_document",
			Description: "Remove a document from the system (this does not remove it from the knowledge graph, only from the upload tracking).",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"doc_id": map[string]interface{}{
						"type":        "string",
						"description": "Document identifier to delete",
					},
				},
				Required: []string{"doc_id"},
			},
		},
		{
			Name:        "get_storage_info",
			Description: "Get information about the RAG storage and system status.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{},
			},
		},
		// Content insertion
		{
			Name:        "insert_content_list",
			Description: "Insert pre-parsed content directly into the knowledge base. Useful when you have already extracted content from documents.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"content_list": map[string]interface{}{
						"type":        "array",
						"description": "List of content items to insert",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"type":          map[string]interface{}{"type": "string"},
								"text":          map[string]interface{}{"type": "string"},
								"img_path":      map[string]interface{}{"type": "string"},
								"image_caption": map[string]interface{}{"type": "array"},
								"page_idx":      map[string]interface{}{"type": "integer"},
							},
						},
					},
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Reference file path for the content",
					},
					"doc_id": map[string]interface{}{
						"type":        "string",
						"description": "Optional document ID",
					},
				},
				Required: []string{"content_list", "file_path"},
			},
		},
	}
}
