package permissions

// Compiled-in catalog for the brokerage portal. Environments that need
// a different catalog load one from YAML instead (see LoadCatalog); the
// shape here is the reference the loader is validated against.

// Navigation section keys.
const (
	KeyNavHome          Key = "nav_home"
	KeyNavSales         Key = "nav_sales"
	KeyNavMarketing     Key = "nav_marketing"
	KeyNavSocial        Key = "nav_social"
	KeyNavAutomation    Key = "nav_automation"
	KeyNavOperations    Key = "nav_operations"
	KeyNavCommunication Key = "nav_communication"
	KeyNavFinance       Key = "nav_finance"
	KeyNavSettings      Key = "nav_settings"
	KeyNavMaterials     Key = "nav_materials"
)

// DefaultCatalog returns the portal's permission catalog: navigation
// sections with their sub-items, plus the action, finance and marketing
// permission groups.
func DefaultCatalog() *Catalog {
	return MustCatalog([]Category{
		{
			ID:    "navigation",
			Label: "Navigation",
			Icon:  "LayoutDashboard",
			Items: []Item{
				{Key: KeyNavHome, Label: "Home / Overview", Description: "Access to the main dashboard"},
				{
					Key: KeyNavSales, Label: "Sales", Description: "Pipeline, quotes, policies",
					Children: []SubItem{
						{Key: "nav_sales_pipeline", Label: "Visual Pipeline", SidebarID: "sales-pipeline"},
						{Key: "nav_sales_leads", Label: "Leads", SidebarID: "sales-leads"},
						{Key: "nav_sales_crm", Label: "CRM", SidebarID: "sales-crm"},
						{Key: "nav_sales_crm_contacts", Label: "Contacts", SidebarID: "sales-crm-contacts"},
						{Key: "nav_sales_crm_companies", Label: "Companies", SidebarID: "sales-crm-companies"},
						{Key: "nav_sales_quotes", Label: "Quotes", SidebarID: "sales-quotes"},
						{Key: "nav_sales_proposals", Label: "Proposals", SidebarID: "sales-proposals"},
						{Key: "nav_sales_proposals_queue", Label: "Proposal Queue", SidebarID: "sales-proposals-queue"},
						{Key: "nav_sales_proposals_scanner", Label: "Smart Scanner", SidebarID: "sales-proposals-scanner"},
						{Key: "nav_sales_proposals_manual", Label: "Manual Proposal", SidebarID: "sales-proposals-manual"},
						{Key: "nav_sales_contracts", Label: "Contracts", SidebarID: "sales-contracts"},
						{Key: "nav_sales_policies", Label: "Policies Sold", SidebarID: "sales-policies"},
						{Key: "nav_sales_pricing", Label: "Price Tables", SidebarID: "sales-pricing"},
						{Key: "nav_sales_crm_analytics", Label: "CRM Analytics", SidebarID: "sales-crm-analytics"},
						{Key: "nav_sales_deals", Label: "Deals", SidebarID: "sales-deals"},
					},
				},
				{
					Key: KeyNavMarketing, Label: "Marketing & Ads", Description: "Meta Ads, Google, TikTok",
					Children: []SubItem{
						{Key: "nav_mkt_overview", Label: "Overview (Metrics, Performance)", SidebarID: "mkt-overview"},
						{Key: "nav_mkt_google", Label: "Google Ads & Analytics", SidebarID: "mkt-google"},
						{Key: "nav_mkt_meta", Label: "Meta Ads", SidebarID: "mkt-meta"},
						{Key: "nav_mkt_tiktok", Label: "TikTok Ads", SidebarID: "mkt-tiktok"},
					},
				},
				{
					Key: KeyNavSocial, Label: "Social Studio", Description: "Composer, calendar, library",
					Children: []SubItem{
						{Key: "nav_social_dashboard", Label: "Dashboard", SidebarID: "social-dashboard"},
						{Key: "nav_social_composer", Label: "Composer", SidebarID: "social-composer"},
						{Key: "nav_social_calendar", Label: "Calendar", SidebarID: "social-calendar"},
						{Key: "nav_social_library", Label: "Library", SidebarID: "social-library"},
						{Key: "nav_social_approval", Label: "Approval", SidebarID: "social-approval"},
						{Key: "nav_social_accounts", Label: "Connect Accounts", SidebarID: "social-accounts"},
						{Key: "nav_social_analytics", Label: "Analytics", SidebarID: "social-analytics"},
					},
				},
				{
					Key: KeyNavAutomation, Label: "AI & Automation", Description: "AI performance, rules, workflows",
					Children: []SubItem{
						{Key: "nav_auto_performance", Label: "AI Performance", SidebarID: "auto-performance"},
						{Key: "nav_auto_rules", Label: "Rules & Alerts", SidebarID: "auto-rules"},
						{Key: "nav_auto_insights", Label: "AI Insights", SidebarID: "auto-insights"},
						{Key: "nav_auto_scanner", Label: "Smart Scanner", SidebarID: "auto-scanner"},
						{Key: "nav_auto_flows", Label: "AI Automations", SidebarID: "auto-flows"},
						{Key: "nav_auto_workflows", Label: "CRM Workflows", SidebarID: "auto-workflows"},
					},
				},
				{
					Key: KeyNavOperations, Label: "Operations", Description: "Clients, documents, tasks",
					Children: []SubItem{
						{Key: "nav_ops_clients", Label: "Clients", SidebarID: "ops-clients"},
						{Key: "nav_ops_client_portal", Label: "Client Portal", SidebarID: "ops-client-portal"},
						{Key: "nav_ops_documents", Label: "Documents", SidebarID: "ops-documents"},
						{Key: "nav_ops_tasks", Label: "Tasks", SidebarID: "ops-tasks"},
						{Key: "nav_ops_brokers", Label: "Brokers", SidebarID: "ops-brokers"},
						{Key: "nav_ops_referrals", Label: "Referrals", SidebarID: "ops-referrals"},
						{Key: "nav_ops_renewals", Label: "Renewals", SidebarID: "ops-renewals"},
						{Key: "nav_ops_training", Label: "Training", SidebarID: "ops-training"},
						{Key: "nav_ops_email_templates", Label: "Email Templates", SidebarID: "ops-email-templates"},
					},
				},
				{
					Key: KeyNavCommunication, Label: "Communication", Description: "WhatsApp, chat, email",
					Children: []SubItem{
						{Key: "nav_comm_whatsapp", Label: "WhatsApp", SidebarID: "comm-whatsapp"},
						{Key: "nav_comm_chat", Label: "Team Chat", SidebarID: "comm-chat"},
						{Key: "nav_comm_chat_admin", Label: "Chat Permissions", SidebarID: "comm-chat-admin"},
						{Key: "nav_comm_email", Label: "Email", SidebarID: "comm-email"},
						{Key: "nav_comm_alerts", Label: "Notifications", SidebarID: "comm-alerts"},
					},
				},
				{
					Key: KeyNavFinance, Label: "Finance", Description: "Financial dashboard, production",
					Children: []SubItem{
						{Key: "nav_fin_overview", Label: "Overview", SidebarID: "fin-overview"},
						{Key: "nav_fin_production", Label: "Production", SidebarID: "fin-production"},
						{Key: "nav_fin_commissions", Label: "Commissions", SidebarID: "fin-commissions"},
						{Key: "nav_fin_statement", Label: "Statement", SidebarID: "fin-statement"},
						{Key: "nav_fin_billing", Label: "Billing", SidebarID: "fin-billing"},
					},
				},
				{
					Key: KeyNavSettings, Label: "Settings", Description: "General, APIs, profile, security",
					Children: []SubItem{
						{Key: "nav_settings_general", Label: "General", SidebarID: "settings-general"},
						{Key: "nav_settings_apis", Label: "APIs & Integrations", SidebarID: "settings-apis"},
						{Key: "nav_settings_users", Label: "System Users", SidebarID: "settings-users"},
						{Key: "nav_settings_profile", Label: "Profile", SidebarID: "settings-profile"},
						{Key: "nav_settings_security", Label: "Security", SidebarID: "settings-security"},
					},
				},
				{
					Key: KeyNavMaterials, Label: "Materials", Description: "Sales material, creatives, uploads",
					Children: []SubItem{
						{Key: "nav_mat_sales", Label: "Sales Material", SidebarID: "mat-sales"},
						{Key: "nav_mat_banners", Label: "Banner Studio", SidebarID: "mat-banners"},
						{Key: "nav_mat_branding", Label: "Brand Kit", SidebarID: "mat-branding"},
						{Key: "nav_mat_gallery", Label: "Saved Gallery", SidebarID: "mat-gallery"},
						{Key: "nav_mat_uploads", Label: "My Uploads", SidebarID: "mat-uploads"},
					},
				},
			},
		},
		{
			ID:    "actions",
			Label: "Actions",
			Icon:  "Zap",
			Items: []Item{
				{Key: "action_create_lead", Label: "Create Lead", Description: "Create new leads manually"},
				{Key: "action_edit_lead", Label: "Edit Lead", Description: "Modify existing lead data"},
				{Key: "action_delete_lead", Label: "Delete Lead", Description: "Remove leads permanently"},
				{Key: "action_export_csv", Label: "Export Data", Description: "Download data as CSV/Excel"},
				{Key: "action_create_proposal", Label: "Create Proposal", Description: "Create new proposals"},
				{Key: "action_edit_proposal", Label: "Edit Proposal", Description: "Modify existing proposals"},
				{Key: "action_delete_proposal", Label: "Delete Proposal", Description: "Remove proposals"},
				{Key: "action_approve_proposal", Label: "Approve Proposal", Description: "Move proposals to approved status"},
				{Key: "action_manage_brokers", Label: "Manage Brokers", Description: "Create, edit, suspend brokers"},
				{Key: "action_manage_users", Label: "Manage Users", Description: "Edit, suspend, remove users"},
				{Key: "action_send_invite", Label: "Send Invites", Description: "Invite new brokers"},
				{Key: "action_generate_magic_link", Label: "Generate Magic Link", Description: "Generate passwordless access links"},
				{Key: "action_manage_automations", Label: "Manage Automations", Description: "Create and edit AI automations"},
				{Key: "action_manage_integrations", Label: "Manage Integrations", Description: "Configure APIs and connections"},
			},
		},
		{
			ID:    "finance",
			Label: "Finance",
			Icon:  "Wallet",
			Items: []Item{
				{Key: "fin_view_dashboard", Label: "View Financial Dashboard", Description: "View financial metrics"},
				{Key: "fin_view_commissions", Label: "View Commissions", Description: "View broker commissions"},
				{Key: "fin_post_commissions", Label: "Post Commissions", Description: "Create and approve commission entries"},
				{Key: "fin_view_rate_table", Label: "View Commission Rates", Description: "View rate tables per carrier"},
				{Key: "fin_edit_rate_table", Label: "Edit Commission Rates", Description: "Modify percentages and rules"},
				{Key: "fin_view_production", Label: "View Production", Description: "Track implemented production"},
				{Key: "fin_view_billing", Label: "View Billing", Description: "View billing data"},
			},
		},
		{
			ID:    "marketing",
			Label: "Marketing",
			Icon:  "Megaphone",
			Items: []Item{
				{Key: "mkt_view_meta_ads", Label: "View Meta Ads", Description: "View campaigns and metrics"},
				{Key: "mkt_edit_campaigns", Label: "Edit Campaigns", Description: "Create and modify campaigns"},
				{Key: "mkt_view_analytics", Label: "View Analytics", Description: "Access GA4 and reports"},
				{Key: "mkt_view_lead_sources", Label: "View Leads by Source", Description: "Filter leads by traffic source"},
			},
		},
	})
}

// DefaultTemplates returns the role templates over the default catalog.
// Administrator grants everything; broker is the least-privileged role
// and doubles as the fallback for unknown roles.
func DefaultTemplates(catalog *Catalog) *Templates {
	t, err := NewTemplates(catalog, map[string][]Key{
		RoleAdministrator: catalog.Keys(),

		RoleAssistant: {
			KeyNavHome, KeyNavSales, KeyNavOperations, KeyNavCommunication,
			"nav_sales_leads", "nav_sales_crm", "nav_sales_crm_contacts",
			"nav_sales_crm_companies", "nav_sales_quotes",
			"nav_ops_clients", "nav_ops_client_portal", "nav_ops_documents",
			"nav_ops_tasks", "nav_ops_email_templates",
			"nav_comm_whatsapp", "nav_comm_chat", "nav_comm_email", "nav_comm_alerts",
			"action_export_csv",
		},

		RoleTrafficManager: {
			KeyNavHome, KeyNavMarketing, KeyNavSocial, KeyNavAutomation, KeyNavCommunication,
			"nav_mkt_overview", "nav_mkt_google", "nav_mkt_meta", "nav_mkt_tiktok",
			"nav_social_dashboard", "nav_social_composer", "nav_social_calendar",
			"nav_social_library", "nav_social_approval", "nav_social_accounts", "nav_social_analytics",
			"nav_auto_performance", "nav_auto_rules", "nav_auto_insights",
			"nav_auto_flows", "nav_auto_workflows",
			"nav_comm_whatsapp", "nav_comm_chat", "nav_comm_email", "nav_comm_alerts",
			"action_create_lead", "action_edit_lead", "action_export_csv",
			"action_manage_automations",
			"mkt_view_meta_ads", "mkt_edit_campaigns", "mkt_view_analytics",
			"mkt_view_lead_sources",
		},

		RoleBroker: {
			KeyNavHome, KeyNavSales, KeyNavFinance, KeyNavMaterials, KeyNavOperations,
			"nav_sales_proposals_queue", "nav_sales_proposals_scanner",
			"nav_sales_quotes", "nav_sales_pricing", "nav_sales_policies",
			"nav_mat_sales", "nav_mat_banners", "nav_mat_branding",
			"nav_mat_gallery", "nav_mat_uploads",
			"nav_fin_overview", "nav_fin_commissions", "nav_fin_production", "nav_fin_statement",
			"nav_ops_renewals", "nav_ops_referrals", "nav_ops_training",
			"action_create_proposal", "action_edit_proposal", "action_export_csv",
			"fin_view_dashboard", "fin_view_commissions",
			"fin_view_rate_table", "fin_view_production",
		},
	}, RoleBroker, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultRouteTable maps portal routes to the permission keys guarding
// them. Admin portal routes live under /portal, broker dashboard routes
// under /dashboard/broker.
func DefaultRouteTable(catalog *Catalog) *RouteTable {
	rt, err := NewRouteTable(catalog, map[string]Key{
		"/portal/leads":                "nav_sales_leads",
		"/portal/pipeline":             "nav_sales_pipeline",
		"/portal/crm":                  "nav_sales_crm",
		"/portal/crm/deals":            "nav_sales_deals",
		"/portal/proposals":            "nav_sales_proposals",
		"/portal/quotes":               "nav_sales_quotes",
		"/portal/pricing":              "nav_sales_pricing",
		"/portal/contracts":            "nav_sales_contracts",
		"/portal/policies":             "nav_sales_policies",
		"/portal/meta-ads":             KeyNavMarketing,
		"/portal/social":               KeyNavSocial,
		"/portal/ai-performance":       "nav_auto_performance",
		"/portal/automation":           "nav_auto_flows",
		"/portal/finance":              KeyNavFinance,
		"/portal/finance/statement":    "nav_fin_statement",
		"/portal/production":           "nav_fin_production",
		"/portal/billing":              "nav_fin_billing",
		"/portal/brokers":              "nav_ops_brokers",
		"/portal/users":                "nav_settings_users",
		"/portal/settings":             KeyNavSettings,
		"/portal/clients":              "nav_ops_clients",
		"/portal/client-portal":        "nav_ops_client_portal",
		"/portal/documents":            "nav_ops_documents",
		"/portal/email-templates":      "nav_ops_email_templates",
		"/portal/tasks":                "nav_ops_tasks",
		"/portal/referrals":            "nav_ops_referrals",
		"/portal/renewals":             "nav_ops_renewals",
		"/portal/training":             "nav_ops_training",
		"/portal/materials":            KeyNavMaterials,
		"/portal/whatsapp":             "nav_comm_whatsapp",
		"/portal/chat":                 "nav_comm_chat",
		"/portal/chat/permissions":     "nav_comm_chat_admin",
		"/portal/email":                "nav_comm_email",
		"/portal/notifications":        "nav_comm_alerts",
		"/portal/analytics":            "mkt_view_analytics",
		"/portal/metrics":              "mkt_view_analytics",
		"/portal/performance":          "mkt_view_analytics",
		"/portal/reports":              "mkt_view_analytics",
		"/portal/insights":             "nav_auto_insights",
		"/portal/scanner":              "nav_auto_scanner",
		"/portal/ai-rules":             "nav_auto_rules",

		"/dashboard/broker/quotes":              "nav_sales_quotes",
		"/dashboard/broker/proposals":           "nav_sales_proposals",
		"/dashboard/broker/proposals/queue":     "nav_sales_proposals_queue",
		"/dashboard/broker/proposals/manual":    "nav_sales_proposals_manual",
		"/dashboard/broker/policies":            "nav_sales_policies",
		"/dashboard/broker/pricing":             "nav_sales_pricing",
		"/dashboard/broker/materials":           KeyNavMaterials,
		"/dashboard/broker/renewals":            "nav_ops_renewals",
		"/dashboard/broker/referrals":           "nav_ops_referrals",
		"/dashboard/broker/training":            "nav_ops_training",
		"/dashboard/broker/finance":             KeyNavFinance,
		"/dashboard/broker/finance/production":  "nav_fin_production",
		"/dashboard/broker/finance/commissions": "nav_fin_commissions",
		"/dashboard/broker/finance/statement":   "nav_fin_statement",
	})
	if err != nil {
		panic(err)
	}
	return rt
}

// DefaultNavTable maps sidebar item ids to permission keys. Several
// legacy sidebar ids map onto the same key; ids absent from the table
// are always visible.
func DefaultNavTable(catalog *Catalog) *NavTable {
	entries := map[string]Key{
		// top-level sections
		"overview":      KeyNavHome,
		"sales":         KeyNavSales,
		"marketing-ads": KeyNavMarketing,
		"social-studio": KeyNavSocial,
		"ai-automation": KeyNavAutomation,
		"operations":    KeyNavOperations,
		"communication": KeyNavCommunication,
		"finance":       KeyNavFinance,
		"settings":      KeyNavSettings,
		"materials":     KeyNavMaterials,
	}

	// every SubItem declares its own sidebar id
	for _, cat := range catalog.Categories() {
		for _, item := range cat.Items {
			for _, child := range item.Children {
				entries[child.SidebarID] = child.Key
			}
		}
	}

	// legacy and flattened ids kept for older sidebar configs
	for id, key := range map[string]Key{
		"referrals":              "nav_ops_referrals",
		"training":               "nav_ops_training",
		"brokers-panel":          "nav_ops_brokers",
		"brokers-requests":       "nav_ops_brokers",
		"brokers-invites":        "nav_ops_brokers",
		"ops-training-tour":      "nav_ops_training",
		"ops-training-product":   "nav_ops_training",
		"ops-training-market":    "nav_ops_training",
		"ops-training-central":   "nav_ops_training",
		"fin-policies":           "nav_fin_overview",
		"mkt-metrics":            "nav_mkt_overview",
		"mkt-performance":        "nav_mkt_overview",
		"mkt-reports":            "nav_mkt_overview",
		"mkt-cockpit":            "nav_mkt_overview",
		"mkt-meta-overview":      "nav_mkt_meta",
		"mkt-google-ga4":         "nav_mkt_google",
		"auto-performance-v1":    "nav_auto_performance",
		"auto-performance-scale": "nav_auto_performance",
		"auto-audiences":         "nav_auto_performance",
		"auto-settings":          "nav_auto_performance",
		"auto-rules-legacy":      "nav_auto_rules",
		"social-config":          "nav_social_dashboard",
		"settings-apis-legacy":   "nav_settings_apis",
	} {
		entries[id] = key
	}

	nt, err := NewNavTable(catalog, entries)
	if err != nil {
		panic(err)
	}
	return nt
}
