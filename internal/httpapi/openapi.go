// Copyright 2025 James Ross
package httpapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// specYAML documents the job API surface this package serves. It is
// parsed and validated at startup (LoadSpec) so a malformed edit to
// the document fails the process immediately rather than surfacing as
// a confusing 404 from some external doc viewer.
const specYAML = `openapi: 3.0.3
info:
  title: WASM Job Sandbox API
  description: Multi-tenant admission and query surface for sandboxed job execution
  version: 1.0.0

paths:
  /jobs:
    post:
      summary: Submit a job for execution
      operationId: submitJob
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/JobSubmission'
      responses:
        '202':
          description: Job accepted and queued
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/JobSubmissionResponse'
        '401':
          description: Tenant suspended or otherwise unauthorized
        '403':
          description: Tenant lacks a requested capability
        '404':
          description: Tenant not known
        '422':
          description: Payload failed schema validation
        '429':
          description: Tenant rate limit exceeded
        '500':
          description: Service shutting down
        '503':
          description: Job queue full
    get:
      summary: List all known jobs
      operationId: listJobs
      responses:
        '200':
          description: Jobs ordered by submission time
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/JobListItem'

  /jobs/{id}:
    get:
      summary: Fetch a single job record
      operationId: getJob
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
            format: uuid
      responses:
        '200':
          description: Job record
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Job'
        '404':
          description: No job with that id

  /jobs/{id}/watch:
    get:
      summary: Stream lifecycle events for a job over a websocket
      operationId: watchJob
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
            format: uuid
      responses:
        '101':
          description: Switching protocols to websocket
        '404':
          description: No job with that id

components:
  schemas:
    JobSubmission:
      type: object
      required: [tenant_id, module_id, payload]
      properties:
        tenant_id:
          type: string
        module_id:
          type: string
        payload: {}
        capabilities:
          type: array
          items:
            type: string
    JobSubmissionResponse:
      type: object
      properties:
        job_id:
          type: string
          format: uuid
    JobListItem:
      type: object
      properties:
        job_id:
          type: string
        tenant_id:
          type: string
        status:
          type: string
        submitted_at:
          type: string
          format: date-time
    Job:
      type: object
      properties:
        job_id:
          type: string
        tenant_id:
          type: string
        module_id:
          type: string
        status:
          type: string
        message:
          type: string
        submitted_at:
          type: string
          format: date-time
        started_at:
          type: string
          format: date-time
        finished_at:
          type: string
          format: date-time
        duration_ms:
          type: integer
`

// LoadSpec parses and structurally validates the embedded OpenAPI
// document, returning the decoded document for callers that want to
// serve it (e.g. a future /openapi.yaml endpoint).
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(specYAML))
	if err != nil {
		return nil, fmt.Errorf("parse embedded openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("embedded openapi document is invalid: %w", err)
	}
	return doc, nil
}
