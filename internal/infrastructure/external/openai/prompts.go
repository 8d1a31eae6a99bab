package openai

// receiptVisionPrompt asks the model for the three fields the approval
// workflow needs plus a self-reported confidence.
const receiptVisionPrompt = `Carefully examine this receipt or invoice image and extract the following fields.

This is a financial document. Extract with 100% accuracy:

REQUIRED FIELDS:
- supplier_name: The name of the merchant or supplier issuing the receipt
- purchase_date: The date of the purchase in YYYY-MM-DD format
- total_amount: The final total paid, INCLUDING tax
- currency: The three-letter currency code if visible (e.g. "EUR", "USD", "RON")
- confidence: Your confidence in the extraction, between 0.0 and 1.0

Return a JSON object with this exact structure:
{
  "supplier_name": "string",
  "purchase_date": "YYYY-MM-DD",
  "total_amount": number,
  "currency": "string",
  "confidence": number
}

IMPORTANT:
- Extract EXACTLY what you see. Do not guess or make up values.
- For total_amount, use a number without currency symbols.
- If a field is not visible or unclear, use empty string "" or 0, and lower your confidence.`
